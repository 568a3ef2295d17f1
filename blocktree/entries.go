package blocktree

import (
	"github.com/blocktree-go/blocktree/fst"
	"github.com/blocktree-go/blocktree/postings"
)

// pendingEntry is the variant spec.md's data model calls PendingEntry:
// either a finished term awaiting block placement, or a previously built
// block awaiting inclusion as a child.
type pendingEntry interface {
	isPendingEntry()
}

// pendingTerm owns a copy of the term bytes and the opaque stats the
// postings codec produced for it.
type pendingTerm struct {
	term  []byte
	state *postings.TermState
}

func (*pendingTerm) isPendingEntry() {}

// pendingBlock is a previously serialized dictionary block awaiting
// inclusion as a child of a higher block, or (for the field root) the
// final output of the field.
//
// prefix is the on-disk prefix this specific block was serialized with:
// for a floor block that is parentPrefix ‖ floorLeadByte (Data Model
// invariant), or exactly parentPrefix when floorLeadByte is -1; for a
// non-floor block it is exactly parentPrefix. Once a
// sibling group has been folded by compileIndex, ancestors must address
// the group as a whole, not this one sibling, so they read
// routingPrefix() (parentPrefix only) rather than prefix directly — see
// DESIGN.md's "Open Question decisions" for why this split is needed.
type pendingBlock struct {
	prefix        []byte
	fp            int64
	hasTerms      bool
	hasSubBlocks  bool
	isFloor       bool
	floorLeadByte int // -1 when not meaningful

	// index is the compiled FST for this (sub)tree, set once compileIndex
	// runs over the sibling group this block represents.
	index *fst.FST

	// subIndices accumulates child FSTs folded up from deeper levels,
	// consumed and cleared by the next compileIndex call that includes
	// this block (spec.md §4.3 step 3/4).
	subIndices []*fst.FST
}

func (*pendingBlock) isPendingEntry() {}

// routingPrefix is the prefix an ancestor must use when referencing this
// block as a sub-block entry: the shared group prefix, without any
// trailing floor-lead byte. A floor sibling whose own entries are exactly
// the prefix itself (floorLeadByte == -1, e.g. the term "ab" sitting
// alongside "aba"/"abb" under prefix "ab") never had a lead byte appended
// to prefix in writeBlock, so there is nothing to strip.
func (b *pendingBlock) routingPrefix() []byte {
	if b.isFloor && b.floorLeadByte != -1 && len(b.prefix) > 0 {
		return b.prefix[:len(b.prefix)-1]
	}
	return b.prefix
}

// suffixLeadLabel returns the byte at position prefixLength of this
// entry's relevant byte sequence, or -1 if the entry's bytes end exactly
// at prefixLength (spec.md §4.2).
func suffixLeadLabel(e pendingEntry, prefixLength int) int {
	switch v := e.(type) {
	case *pendingTerm:
		if len(v.term) == prefixLength {
			return -1
		}
		return int(v.term[prefixLength])
	case *pendingBlock:
		// Any pendingBlock reachable here already went through
		// compileIndex, so its group identity is routingPrefix(), not the
		// raw prefix one of its floor siblings was serialized with.
		return int(v.routingPrefix()[prefixLength])
	default:
		panic("blocktree: unknown pendingEntry type")
	}
}

func longestCommonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
