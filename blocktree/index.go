package blocktree

import (
	"fmt"

	"github.com/blocktree-go/blocktree/fst"
	"github.com/blocktree-go/blocktree/store"
)

// encodeOutput packs a block's root-entry output per spec.md §6.
func encodeOutput(fp int64, hasTerms, isFloor bool) uint64 {
	out := uint64(fp) << 2
	if hasTerms {
		out |= 2
	}
	if isFloor {
		out |= 1
	}
	return out
}

// decodeOutput is the reader-side inverse of encodeOutput, kept here
// because the root-code/test-assertions in this package need to read back
// what it just wrote (spec.md §8 "FST output decoding").
func decodeOutput(v uint64) (fp int64, hasTerms, isFloor bool) {
	isFloor = v&1 != 0
	hasTerms = v&2 != 0
	fp = int64(v >> 2)
	return
}

// compileIndex implements spec.md §4.3: given the ordered sibling group
// produced by one writeBlocks call (self first, floor siblings following in
// ascending floorLeadByte order), it builds the group's root entry output,
// folds every sibling's subIndices into a fresh FST builder, and stores the
// result on self.
func compileIndex(blocks []*pendingBlock) error {
	if len(blocks) == 0 {
		return fmt.Errorf("%w: compileIndex called with no blocks", ErrInvariant)
	}
	self := blocks[0]
	groupPrefix := self.routingPrefix()

	scratch := store.NewScratch()
	if err := store.WriteVLong(scratch, encodeOutput(self.fp, self.hasTerms, self.isFloor)); err != nil {
		return fmt.Errorf("blocktree: encoding root entry output: %w", err)
	}
	if self.isFloor {
		if err := store.WriteVInt(scratch, uint32(len(blocks)-1)); err != nil {
			return fmt.Errorf("blocktree: encoding floor sibling count: %w", err)
		}
		for _, sib := range blocks[1:] {
			if sib.floorLeadByte < 0 || sib.floorLeadByte > 0xff {
				return fmt.Errorf("%w: invalid floor lead byte %d", ErrInvariant, sib.floorLeadByte)
			}
			if err := scratch.WriteByte(byte(sib.floorLeadByte)); err != nil {
				return fmt.Errorf("blocktree: encoding floor lead byte: %w", err)
			}
			delta := sib.fp - self.fp
			if delta < 0 {
				return fmt.Errorf("%w: floor sibling fp %d precedes group fp %d", ErrInvariant, sib.fp, self.fp)
			}
			routed := uint64(delta) << 1
			if sib.hasTerms {
				routed |= 1
			}
			if err := store.WriteVLong(scratch, routed); err != nil {
				return fmt.Errorf("blocktree: encoding floor routing entry: %w", err)
			}
		}
	}

	b := fst.New()
	if err := b.Insert(groupPrefix, append([]byte(nil), scratch.Bytes()...)); err != nil {
		return fmt.Errorf("blocktree: inserting group root entry: %w", err)
	}

	for _, blk := range blocks {
		for _, child := range blk.subIndices {
			for _, e := range child.Enumerate() {
				if err := b.Insert(e.Input, e.Output); err != nil {
					return fmt.Errorf("blocktree: folding child FST entry %q: %w", e.Input, err)
				}
			}
		}
		blk.subIndices = nil
	}

	compiled, err := b.Finish()
	if err != nil {
		return fmt.Errorf("blocktree: finishing group FST: %w", err)
	}
	self.index = compiled
	return nil
}
