package fst

import (
	"fmt"

	"github.com/blocktree-go/blocktree/store"
)

// WriteTo serializes f as a self-contained depth-first preorder encoding:
// for each node, a final-flag byte, then (for a final node only)
// vInt(output length) + output bytes, then vInt(arc count), and per arc in
// ascending label order the label byte followed by the child node encoded
// the same way. This is not address/offset-compacted the way
// a production FST library shares common suffixes across arcs (spec.md
// §4.3 step 2 calls that out as a feature of the target library); see
// DESIGN.md for why a from-scratch encoder was used instead of vellum.
func (f *FST) WriteTo(out store.IndexOutput) error {
	return writeNode(out, f.root)
}

func writeNode(out store.IndexOutput, n *node) error {
	var finalFlag byte
	if n.isFinal {
		finalFlag = 1
	}
	if err := out.WriteByte(finalFlag); err != nil {
		return err
	}
	if n.isFinal {
		if err := out.WriteVInt(uint32(len(n.output))); err != nil {
			return err
		}
		if err := out.WriteBytes(n.output); err != nil {
			return err
		}
	}
	labels := sortedLabels(n)
	if err := out.WriteVInt(uint32(len(labels))); err != nil {
		return err
	}
	for _, l := range labels {
		if err := out.WriteByte(l); err != nil {
			return err
		}
		if err := writeNode(out, n.children[l]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFST deserializes an FST written by WriteTo.
func ReadFST(in store.IndexInput) (*FST, error) {
	n, err := readNode(in)
	if err != nil {
		return nil, fmt.Errorf("fst: failed to read: %w", err)
	}
	return &FST{root: n}, nil
}

func readNode(in store.IndexInput) (*node, error) {
	n := newNode()
	finalFlag, err := in.ReadByte()
	if err != nil {
		return nil, err
	}
	if finalFlag == 1 {
		n.isFinal = true
		outLen, err := in.ReadVInt()
		if err != nil {
			return nil, err
		}
		out, err := in.ReadBytes(int(outLen))
		if err != nil {
			return nil, err
		}
		n.output = append([]byte(nil), out...)
	}
	numArcs, err := in.ReadVInt()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numArcs; i++ {
		label, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		child, err := readNode(in)
		if err != nil {
			return nil, err
		}
		n.children[label] = child
	}
	return n, nil
}

func sortedLabels(n *node) []byte {
	labels := make([]byte, 0, len(n.children))
	for l := range n.children {
		labels = append(labels, l)
	}
	for i := 1; i < len(labels); i++ {
		for j := i; j > 0 && labels[j-1] > labels[j]; j-- {
			labels[j-1], labels[j] = labels[j], labels[j-1]
		}
	}
	return labels
}
