package blocktree

import (
	"fmt"

	"github.com/blocktree-go/blocktree/postings"
	"github.com/blocktree-go/blocktree/store"
)

const (
	termsCodecName = "BlockTreeTerms"
	indexCodecName = "BlockTreeIndex"
	codecVersion   = 1
)

// Writer drives one segment: it owns the .tim and .tip output sinks, hands
// each field in turn to a fresh FieldWriter, and on Close concatenates the
// field directory, the per-field Bloom filter trailer, and writes both
// trailers (spec.md §4.4, §5 "one writer instance, fields serialized one at
// a time").
type Writer struct {
	cfg            *Config
	tim            *store.FileOutput
	tip            *store.FileOutput
	postingsWriter postings.Writer

	fields  []*FieldMeta
	current *FieldWriter
	closed  bool
}

// NewWriter takes the already-created tim/tip outputs, writes both headers
// plus the postings codec header, and returns a Writer ready to accept
// fields in order.
func NewWriter(cfg *Config, tim, tip *store.FileOutput, pw postings.Writer) (*Writer, error) {
	if cfg == nil {
		var err error
		cfg, err = NewConfig()
		if err != nil {
			return nil, err
		}
	}
	if err := store.WriteHeader(tim, termsCodecName, codecVersion); err != nil {
		return nil, fmt.Errorf("blocktree: writing terms header: %w", err)
	}
	if err := store.WriteHeader(tip, indexCodecName, codecVersion); err != nil {
		return nil, fmt.Errorf("blocktree: writing index header: %w", err)
	}
	if err := pw.Init(tim); err != nil {
		return nil, fmt.Errorf("blocktree: initializing postings codec: %w", err)
	}
	cfg.log().Info("blocktree writer opened")
	return &Writer{cfg: cfg, tim: tim, tip: tip, postingsWriter: pw}, nil
}

// StartField begins a new field. estimatedTerms seeds the optional Bloom
// filter's bit-array size; it need not be exact.
func (w *Writer) StartField(fi postings.FieldInfo, estimatedTerms uint) error {
	if w.current != nil {
		return fmt.Errorf("%w: StartField called while a previous field is still open", ErrInvariant)
	}
	longsSize, err := w.postingsWriter.SetField(fi)
	if err != nil {
		return fmt.Errorf("blocktree: postings codec SetField: %w", err)
	}
	w.current = NewFieldWriter(w.cfg, w.tim, w.postingsWriter, fi, longsSize, estimatedTerms)
	return nil
}

// StartTerm delegates to the field currently open via StartField.
func (w *Writer) StartTerm(term []byte) (postings.PostingsConsumer, error) {
	if w.current == nil {
		return nil, fmt.Errorf("%w: StartTerm called with no open field", ErrInvariant)
	}
	return w.current.StartTerm(term)
}

// NewTermState allocates a TermState sized for the field currently open.
func (w *Writer) NewTermState() *postings.TermState {
	return w.postingsWriter.NewTermState()
}

// FinishTerm delegates to the field currently open via StartField.
func (w *Writer) FinishTerm(term []byte, ts *postings.TermState) error {
	if w.current == nil {
		return fmt.Errorf("%w: FinishTerm called with no open field", ErrInvariant)
	}
	return w.current.FinishTerm(term, ts)
}

// FinishField closes out the field currently open, registering its
// FieldMeta (if it received any terms) for the eventual field directory.
func (w *Writer) FinishField(sumTotalTermFreq, sumDocFreq int64, docCount int) error {
	if w.current == nil {
		return fmt.Errorf("%w: FinishField called with no open field", ErrInvariant)
	}
	meta, err := w.current.Finish(w.tip, sumTotalTermFreq, sumDocFreq, docCount)
	if err != nil {
		w.current = nil
		return err
	}
	w.current = nil
	if meta != nil {
		w.fields = append(w.fields, meta)
	}
	return nil
}

// Close writes the field directory to .tim, the matching indexStartFP
// sequence to .tip, both trailers, and closes the postings codec and both
// sinks. It is safe to call once; on any failure every resource is still
// closed best-effort (spec.md §7).
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.writeFieldDirectory()
	if cerr := store.CloseAll(w.postingsWriter, w.tim, w.tip); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) writeFieldDirectory() error {
	dirStart := w.tim.FilePointer()
	tipDirStart := w.tip.FilePointer()
	if err := w.tim.WriteVInt(uint32(len(w.fields))); err != nil {
		return fmt.Errorf("blocktree: writing field count: %w", err)
	}
	for _, fm := range w.fields {
		if err := w.writeFieldSummary(fm); err != nil {
			return err
		}
		if err := w.tip.WriteVLong(uint64(fm.IndexStartFP)); err != nil {
			return fmt.Errorf("blocktree: writing field index start fp: %w", err)
		}
	}

	bloomStart := w.tim.FilePointer()
	if err := w.writeBloomTrailer(); err != nil {
		return err
	}

	if err := w.tim.WriteLong(dirStart); err != nil {
		return fmt.Errorf("blocktree: writing tim directory offset: %w", err)
	}
	if err := w.tim.WriteLong(bloomStart); err != nil {
		return fmt.Errorf("blocktree: writing tim bloom trailer offset: %w", err)
	}
	if err := store.WriteFooter(w.tim); err != nil {
		return fmt.Errorf("blocktree: writing tim footer: %w", err)
	}

	if err := w.tip.WriteLong(tipDirStart); err != nil {
		return fmt.Errorf("blocktree: writing tip directory offset: %w", err)
	}
	return store.WriteFooter(w.tip)
}

// writeBloomTrailer serializes each field's optional Bloom filter as a
// trailer segment after the FieldSummary directory (SPEC_FULL.md §3),
// grounded on the teacher's diskSSTWriter.writeBloomFilter (K()/Cap()/
// WriteTo). A field written with the Bloom filter option disabled gets a
// single zero flag byte and nothing else.
func (w *Writer) writeBloomTrailer() error {
	for _, fm := range w.fields {
		if fm.Bloom == nil {
			if err := w.tim.WriteByte(0); err != nil {
				return fmt.Errorf("blocktree: writing bloom trailer flag: %w", err)
			}
			continue
		}
		if err := w.tim.WriteByte(1); err != nil {
			return fmt.Errorf("blocktree: writing bloom trailer flag: %w", err)
		}
		if err := w.tim.WriteVInt(uint32(fm.Bloom.K())); err != nil {
			return fmt.Errorf("blocktree: writing bloom filter hash count: %w", err)
		}
		if err := w.tim.WriteVInt(uint32(fm.Bloom.Cap())); err != nil {
			return fmt.Errorf("blocktree: writing bloom filter bit capacity: %w", err)
		}
		scratch := store.NewScratch()
		if _, err := fm.Bloom.WriteTo(scratch); err != nil {
			return fmt.Errorf("blocktree: serializing bloom filter bits: %w", err)
		}
		if err := w.tim.WriteVInt(uint32(scratch.Len())); err != nil {
			return fmt.Errorf("blocktree: writing bloom filter byte count: %w", err)
		}
		if err := scratch.WriteTo(w.tim); err != nil {
			return fmt.Errorf("blocktree: writing bloom filter bits: %w", err)
		}
	}
	return nil
}

func (w *Writer) writeFieldSummary(fm *FieldMeta) error {
	if err := w.tim.WriteVInt(uint32(fm.FieldInfo.Number)); err != nil {
		return err
	}
	if err := w.tim.WriteVLong(uint64(fm.NumTerms)); err != nil {
		return err
	}
	if err := w.tim.WriteVInt(uint32(len(fm.RootCode))); err != nil {
		return err
	}
	if err := w.tim.WriteBytes(fm.RootCode); err != nil {
		return err
	}
	if fm.FieldInfo.IndexOptions.HasFreqs() {
		if err := w.tim.WriteVLong(uint64(fm.SumTotalTermFreq)); err != nil {
			return err
		}
	}
	if err := w.tim.WriteVLong(uint64(fm.SumDocFreq)); err != nil {
		return err
	}
	if err := w.tim.WriteVInt(uint32(fm.DocCount)); err != nil {
		return err
	}
	if err := w.tim.WriteVInt(uint32(fm.LongsSize)); err != nil {
		return err
	}
	if err := w.tim.WriteVInt(uint32(len(fm.MinTerm))); err != nil {
		return err
	}
	if err := w.tim.WriteBytes(fm.MinTerm); err != nil {
		return err
	}
	if err := w.tim.WriteVInt(uint32(len(fm.MaxTerm))); err != nil {
		return err
	}
	return w.tim.WriteBytes(fm.MaxTerm)
}
