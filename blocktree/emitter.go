package blocktree

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/blocktree-go/blocktree/fst"
)

// segment describes one floor-split piece of a pending-stack run, expressed
// as absolute indices into fw.pending.
type segment struct {
	start, end         int
	hasTerms           bool
	hasSubBlocks       bool
	floorLeadLabel     int // -1 when this segment has no routing byte of its own
}

// writeBlocks implements spec.md §4.2's block emitter over the top `count`
// entries of the pending stack. It may split the run into several floor
// blocks, then folds the resulting sibling group into a single PendingBlock
// that replaces the consumed entries.
func (fw *FieldWriter) writeBlocks(prefixLength, count int) error {
	if count == 0 {
		return nil
	}
	total := len(fw.pending)
	start := total - count
	if start < 0 {
		return fmt.Errorf("%w: writeBlocks count %d exceeds pending size %d", ErrInvariant, count, total)
	}

	segments := fw.scanSegments(prefixLength, start, total)
	isFloor := len(segments) > 1

	if isFloor {
		seen := bitset.New(256)
		last := -1
		for _, seg := range segments {
			if seg.floorLeadLabel < 0 {
				continue
			}
			b := uint(seg.floorLeadLabel)
			if seen.Test(b) {
				return fmt.Errorf("%w: duplicate floor lead byte %d", ErrInvariant, seg.floorLeadLabel)
			}
			if seg.floorLeadLabel <= last {
				return fmt.Errorf("%w: floor lead bytes not strictly increasing (%d after %d)", ErrInvariant, seg.floorLeadLabel, last)
			}
			seen.Set(b)
			last = seg.floorLeadLabel
		}
	}

	blocks := make([]*pendingBlock, 0, len(segments))
	for _, seg := range segments {
		blk, err := fw.writeBlock(prefixLength, isFloor, seg.floorLeadLabel, seg.start, seg.end, seg.hasTerms, seg.hasSubBlocks)
		if err != nil {
			return err
		}
		blocks = append(blocks, blk)
	}

	if err := compileIndex(blocks); err != nil {
		return err
	}

	self := blocks[0]
	fw.pending = append(fw.pending[:start], self)
	return nil
}

// scanSegments implements the left-to-right greedy floor split spec.md §4.2
// describes: a new floor segment is cut only once minItemsInBlock entries
// have accumulated since the current segment started AND the remainder
// still exceeds maxItemsInBlock.
func (fw *FieldWriter) scanSegments(prefixLength, start, end int) []segment {
	var segments []segment
	segStart := start
	segHasTerms := false
	segHasSubBlocks := false
	lastLabel := -2 // sentinel: "no entry scanned yet in this segment run"

	markEntry := func(i int) {
		switch fw.pending[i].(type) {
		case *pendingTerm:
			segHasTerms = true
		case *pendingBlock:
			segHasSubBlocks = true
		}
	}

	for i := start; i < end; i++ {
		label := suffixLeadLabel(fw.pending[i], prefixLength)
		if i > segStart && label != lastLabel {
			countSinceStart := i - segStart
			remaining := end - segStart
			if countSinceStart >= fw.cfg.minItemsInBlock && remaining > fw.cfg.maxItemsInBlock {
				segments = append(segments, segment{
					start:          segStart,
					end:            i,
					hasTerms:       segHasTerms,
					hasSubBlocks:   segHasSubBlocks,
					floorLeadLabel: suffixLeadLabel(fw.pending[segStart], prefixLength),
				})
				segStart = i
				segHasTerms = false
				segHasSubBlocks = false
			}
		}
		markEntry(i)
		lastLabel = label
	}
	segments = append(segments, segment{
		start:          segStart,
		end:            end,
		hasTerms:       segHasTerms,
		hasSubBlocks:   segHasSubBlocks,
		floorLeadLabel: suffixLeadLabel(fw.pending[segStart], prefixLength),
	})
	return segments
}

// writeBlock serializes one block to .tim per spec.md §4.2 and returns the
// PendingBlock that represents it until compileIndex folds it into its
// sibling group.
func (fw *FieldWriter) writeBlock(prefixLength int, isFloor bool, floorLeadLabel int, start, end int, hasTerms, hasSubBlocks bool) (*pendingBlock, error) {
	startFP := fw.tim.FilePointer()

	prefix := append([]byte(nil), fw.lastTerm[:prefixLength]...)
	if isFloor && floorLeadLabel != -1 {
		prefix = append(prefix, byte(floorLeadLabel))
	}

	isLastBlock := end == len(fw.pending)
	code := uint32(end-start) << 1
	if isLastBlock {
		code |= 1
	}
	if err := fw.tim.WriteVInt(code); err != nil {
		return nil, fmt.Errorf("blocktree: writing block code: %w", err)
	}

	isLeafBlock := !hasSubBlocks
	var subIndices []*fst.FST

	fw.suffixBuf.Reset()
	fw.statsBuf.Reset()
	fw.metaBuf.Reset()

	for i := start; i < end; i++ {
		switch e := fw.pending[i].(type) {
		case *pendingTerm:
			suffix := e.term[prefixLength:]
			if isLeafBlock {
				if err := fw.suffixBuf.WriteVInt(uint32(len(suffix))); err != nil {
					return nil, err
				}
			} else {
				if err := fw.suffixBuf.WriteVInt(uint32(len(suffix)) << 1); err != nil {
					return nil, err
				}
			}
			if err := fw.suffixBuf.WriteBytes(suffix); err != nil {
				return nil, err
			}

			if err := fw.statsBuf.WriteVInt(uint32(e.state.DocFreq)); err != nil {
				return nil, err
			}
			if fw.fieldInfo.IndexOptions.HasFreqs() {
				delta := e.state.TotalTermFreq - int64(e.state.DocFreq)
				if delta < 0 {
					return nil, fmt.Errorf("%w: totalTermFreq %d < docFreq %d", ErrInvalidTermFreq, e.state.TotalTermFreq, e.state.DocFreq)
				}
				if err := fw.statsBuf.WriteVLong(uint64(delta)); err != nil {
					return nil, err
				}
			}

			fw.bytesSink.Reset()
			absolute := i == start
			if err := fw.postingsWriter.EncodeTerm(e.state.Longs, fw.bytesSink, fw.fieldInfo, e.state, absolute); err != nil {
				return nil, fmt.Errorf("blocktree: postings codec EncodeTerm: %w", err)
			}
			for _, l := range e.state.Longs {
				if err := fw.metaBuf.WriteVLong(uint64(l)); err != nil {
					return nil, err
				}
			}
			if err := fw.metaBuf.WriteBytes(fw.bytesSink.Bytes()); err != nil {
				return nil, err
			}

		case *pendingBlock:
			suffix := e.routingPrefix()[prefixLength:]
			if err := fw.suffixBuf.WriteVInt(uint32(len(suffix))<<1 | 1); err != nil {
				return nil, err
			}
			if err := fw.suffixBuf.WriteBytes(suffix); err != nil {
				return nil, err
			}
			fpDelta := startFP - e.fp
			if fpDelta < 0 {
				return nil, fmt.Errorf("%w: sub-block fp %d not before parent startFP %d", ErrInvariant, e.fp, startFP)
			}
			if err := fw.suffixBuf.WriteVLong(uint64(fpDelta)); err != nil {
				return nil, err
			}
			if e.index != nil {
				subIndices = append(subIndices, e.index)
			}

		default:
			return nil, fmt.Errorf("%w: unknown pending entry type", ErrInvariant)
		}
	}

	suffixHeader := uint32(fw.suffixBuf.Len())<<1
	if isLeafBlock {
		suffixHeader |= 1
	}
	if err := fw.tim.WriteVInt(suffixHeader); err != nil {
		return nil, err
	}
	if err := fw.suffixBuf.WriteTo(fw.tim); err != nil {
		return nil, err
	}

	if err := fw.tim.WriteVInt(uint32(fw.statsBuf.Len())); err != nil {
		return nil, err
	}
	if err := fw.statsBuf.WriteTo(fw.tim); err != nil {
		return nil, err
	}

	if err := fw.tim.WriteVInt(uint32(fw.metaBuf.Len())); err != nil {
		return nil, err
	}
	if err := fw.metaBuf.WriteTo(fw.tim); err != nil {
		return nil, err
	}

	return &pendingBlock{
		prefix:        prefix,
		fp:            startFP,
		hasTerms:      hasTerms,
		hasSubBlocks:  hasSubBlocks,
		isFloor:       isFloor,
		floorLeadByte: floorLeadLabel,
		subIndices:    subIndices,
	}, nil
}
