package blocktree

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/blocktree-go/blocktree/fst"
	"github.com/blocktree-go/blocktree/postings"
	"github.com/blocktree-go/blocktree/store"
)

// FieldMeta is the per-field summary recorded at segment close (spec.md
// §3, §4.4).
type FieldMeta struct {
	FieldInfo        postings.FieldInfo
	RootCode         []byte
	NumTerms         int64
	IndexStartFP     int64
	SumTotalTermFreq int64 // -1 sentinel for docs-only fields, spec.md §9
	SumDocFreq       int64
	DocCount         int
	LongsSize        int
	MinTerm          []byte
	MaxTerm          []byte
	Bloom            *bloom.BloomFilter // nil when the Bloom filter option is disabled
}

// FieldWriter drives one field at a time: it owns the pending stack and the
// scratch buffers the block emitter reuses across terms and blocks
// (spec.md §4.1, §9 "shared scratch buffers").
type FieldWriter struct {
	cfg            *Config
	tim            store.IndexOutput
	postingsWriter postings.Writer
	fieldInfo      postings.FieldInfo
	longsSize      int

	pending      []pendingEntry
	prefixStarts []int

	lastTerm    []byte
	hasLastTerm bool
	minTerm     []byte
	maxTerm     []byte
	numTerms    int64

	suffixBuf *store.Scratch
	statsBuf  *store.Scratch
	metaBuf   *store.Scratch
	bytesSink *store.Scratch

	bloom *bloom.BloomFilter

	root *pendingBlock // set once finish() has run
}

// NewFieldWriter begins a new field. tim is the shared .tim output stream;
// the postings codec's SetField has already been called by the caller
// (spec.md §6: setField is invoked once per field by whoever owns codec
// lifecycle, i.e. the segment Writer).
func NewFieldWriter(cfg *Config, tim store.IndexOutput, pw postings.Writer, fi postings.FieldInfo, longsSize int, estimatedTerms uint) *FieldWriter {
	return &FieldWriter{
		cfg:            cfg,
		tim:            tim,
		postingsWriter: pw,
		fieldInfo:      fi,
		longsSize:      longsSize,
		suffixBuf:      store.NewScratch(),
		statsBuf:       store.NewScratch(),
		metaBuf:        store.NewScratch(),
		bytesSink:      store.NewScratch(),
		bloom:          cfg.newBloomFilter(estimatedTerms),
	}
}

// StartTerm validates term order and hands back a fresh postings consumer
// for the caller to append per-document postings to (spec.md §4.1).
func (fw *FieldWriter) StartTerm(term []byte) (postings.PostingsConsumer, error) {
	if fw.hasLastTerm && bytes.Compare(term, fw.lastTerm) <= 0 {
		return nil, fmt.Errorf("%w: term %q not greater than previous term %q", ErrOutOfOrderTerm, term, fw.lastTerm)
	}
	return fw.postingsWriter.StartTerm()
}

// FinishTerm implements spec.md §4.1: copy term bytes into a new
// PendingTerm, record stats, append to the pending stack, then call
// pushTerm. pushTerm runs before the append (not after, despite the
// spec's prose reading append-then-push): pushTerm's block-closing
// arithmetic counts entries already on the stack that share a prefix
// with the term the stream is abandoning, and the term being pushed right
// now is never a member of that abandoned run, so it must not be counted.
// Appending first and pushing second would, for the very depth at which
// this term first diverges from the last one, overcount that run by one.
func (fw *FieldWriter) FinishTerm(term []byte, ts *postings.TermState) error {
	if ts.DocFreq <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDocFreq, ts.DocFreq)
	}
	if fw.fieldInfo.IndexOptions.HasFreqs() && ts.TotalTermFreq < int64(ts.DocFreq) {
		return fmt.Errorf("%w: totalTermFreq %d < docFreq %d", ErrInvalidTermFreq, ts.TotalTermFreq, ts.DocFreq)
	}
	if err := fw.postingsWriter.FinishTerm(ts); err != nil {
		return fmt.Errorf("blocktree: postings codec FinishTerm: %w", err)
	}

	owned := append([]byte(nil), term...)

	if err := fw.pushTerm(owned); err != nil {
		return err
	}

	fw.pending = append(fw.pending, &pendingTerm{term: owned, state: ts})

	fw.lastTerm = owned
	fw.hasLastTerm = true
	if fw.minTerm == nil {
		fw.minTerm = owned
	}
	fw.maxTerm = owned
	fw.numTerms++

	if fw.bloom != nil {
		fw.bloom.Add(owned)
	}
	return nil
}

// pushTerm implements spec.md §4.1's block-closing walk: for every depth
// abandoned by the move from lastTerm to text, close out the run of stack
// entries sharing that depth's prefix once it holds at least
// minItemsInBlock entries.
func (fw *FieldWriter) pushTerm(text []byte) error {
	if !fw.hasLastTerm {
		fw.growPrefixStarts(len(text))
		for d := 0; d < len(text); d++ {
			fw.prefixStarts[d] = len(fw.pending)
		}
		return nil
	}

	shared := longestCommonPrefixLen(fw.lastTerm, text)
	fw.growPrefixStarts(len(fw.lastTerm))

	for d := len(fw.lastTerm) - 1; d >= shared; d-- {
		n := len(fw.pending) - fw.prefixStarts[d]
		if n >= fw.cfg.minItemsInBlock {
			if err := fw.writeBlocks(d+1, n); err != nil {
				return err
			}
			fw.prefixStarts[d] -= n - 1
		}
	}

	fw.growPrefixStarts(len(text))
	for d := shared; d < len(text); d++ {
		fw.prefixStarts[d] = len(fw.pending)
	}
	return nil
}

func (fw *FieldWriter) growPrefixStarts(n int) {
	for len(fw.prefixStarts) < n {
		fw.prefixStarts = append(fw.prefixStarts, 0)
	}
}

// Finish implements spec.md §4.1's field finalizer: force-close every open
// run with a virtual empty-term sentinel, flush the entire remaining stack
// into the root block, write the field's FST to tip, and return the
// FieldMeta to register in the segment's field directory.
func (fw *FieldWriter) Finish(tip store.IndexOutput, sumTotalTermFreq, sumDocFreq int64, docCount int) (*FieldMeta, error) {
	if fw.numTerms == 0 {
		return nil, nil
	}

	if fw.hasLastTerm {
		if err := fw.pushTerm(nil); err != nil {
			return nil, err
		}
	}
	if err := fw.writeBlocks(0, len(fw.pending)); err != nil {
		return nil, err
	}
	if len(fw.pending) != 1 {
		return nil, fmt.Errorf("%w: finish left %d pending entries, want 1", ErrInvariant, len(fw.pending))
	}
	root, ok := fw.pending[0].(*pendingBlock)
	if !ok {
		return nil, fmt.Errorf("%w: finish's sole remaining entry is not a block", ErrInvariant)
	}
	if len(root.routingPrefix()) != 0 {
		return nil, fmt.Errorf("%w: root block prefix %q not empty", ErrInvariant, root.routingPrefix())
	}
	fw.root = root

	indexStartFP := tip.FilePointer()
	if err := writeFST(tip, root.index); err != nil {
		return nil, fmt.Errorf("blocktree: writing field FST: %w", err)
	}

	rootCode, _ := root.index.EmptyOutput()

	if !fw.fieldInfo.IndexOptions.HasFreqs() {
		sumTotalTermFreq = -1
	}

	return &FieldMeta{
		FieldInfo:        fw.fieldInfo,
		RootCode:         rootCode,
		NumTerms:         fw.numTerms,
		IndexStartFP:     indexStartFP,
		SumTotalTermFreq: sumTotalTermFreq,
		SumDocFreq:       sumDocFreq,
		DocCount:         docCount,
		LongsSize:        fw.longsSize,
		MinTerm:          fw.minTerm,
		MaxTerm:          fw.maxTerm,
		Bloom:            fw.bloom,
	}, nil
}

// writeFST is the one seam where an alternative FST library's serializer
// would be substituted (spec.md §6 "FSTs are written by the FST library's
// serializer").
func writeFST(out store.IndexOutput, f *fst.FST) error {
	return f.WriteTo(out)
}
