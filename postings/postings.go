// Package postings defines the narrow contract the Block-Tree writer uses
// to delegate per-term postings metadata to an external, pluggable codec
// (spec.md §6). The codec owns its own output file(s); the core only ever
// hands it opaque scratch buffers to append to.
//
// Grounded on the teacher's sst.SSTWriter interface + diskSSTWriter pattern
// (an interface the core depends on, with one concrete disk implementation
// living alongside it in the same package).
package postings

import (
	"github.com/blocktree-go/blocktree/store"
)

// FieldInfo is the subset of field metadata discovery (spec.md §1, listed
// as an input) the postings codec and the core both need.
type FieldInfo struct {
	Name         string
	Number       int
	IndexOptions IndexOptions
}

// IndexOptions mirrors the Lucene-style index-options enum, used to decide
// whether a field records term frequencies at all (spec.md §4.4, §9
// docs-only sentinel).
type IndexOptions int

const (
	IndexOptionsDocsOnly IndexOptions = iota
	IndexOptionsDocsAndFreqs
	IndexOptionsDocsFreqsAndPositions
)

// HasFreqs reports whether terms in a field with these options record
// totalTermFreq at all.
func (o IndexOptions) HasFreqs() bool { return o != IndexOptionsDocsOnly }

// TermState is the opaque per-term state the codec produces and the core
// carries around between finishTerm and encodeTerm without interpreting it,
// other than the two integer stats spec.md's data model calls out
// (docFreq, totalTermFreq).
type TermState struct {
	DocFreq       int
	TotalTermFreq int64 // not read by the writer when the field is docs-only

	// Longs is the fixed-size array of per-term integers the codec
	// populates in EncodeTerm; its length is LongsSize from SetField.
	Longs []int64
}

// PostingsConsumer is handed to the caller between StartTerm and
// FinishTerm so it can append per-document postings for the current term.
// What it looks like beyond Close is entirely up to the codec (spec.md §6).
type PostingsConsumer interface {
	Close() error
}

// Writer is the postings codec interface the core writer calls through,
// spec.md §6 verbatim.
type Writer interface {
	// Init writes the postings-format header to out immediately after the
	// terms-dict header.
	Init(out store.IndexOutput) error

	// SetField declares how many longs per term this codec requires and is
	// called once per field.
	SetField(fi FieldInfo) (longsSize int, err error)

	// StartTerm begins a new term and returns a consumer handle the caller
	// uses to append postings before FinishTerm.
	StartTerm() (PostingsConsumer, error)

	// NewTermState allocates a fresh, reusable TermState.
	NewTermState() *TermState

	// FinishTerm is called once the caller is done appending postings for
	// the current term; it populates ts with final stats.
	FinishTerm(ts *TermState) error

	// EncodeTerm fills longs (LongsSize entries) with the per-term integers
	// for ts, which the writer then stores as vLongs, and appends any
	// codec-private bytes to bytesOut. absolute is true for the first term written into a
	// block, letting the codec reset delta coding at block boundaries.
	EncodeTerm(longs []int64, bytesOut store.ScratchOutput, fi FieldInfo, ts *TermState, absolute bool) error

	// Close is called by the writer during segment close.
	Close() error
}
