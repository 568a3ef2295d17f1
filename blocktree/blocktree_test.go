package blocktree

import (
	"path/filepath"
	"testing"

	"github.com/blocktree-go/blocktree/postings"
	"github.com/blocktree-go/blocktree/store"
)

func TestNewConfigRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"min too small", []Option{WithMinItemsInBlock(1)}},
		{"max too small", []Option{WithMaxItemsInBlock(0)}},
		{"min greater than max", []Option{WithMinItemsInBlock(10), WithMaxItemsInBlock(5)}},
		{"floor inequality violated", []Option{WithMinItemsInBlock(26), WithMaxItemsInBlock(48)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewConfig(tt.opts...); err == nil {
				t.Fatal("expected NewConfig to reject this configuration")
			}
		})
	}
}

func TestNewConfigAcceptsDefaults(t *testing.T) {
	if _, err := NewConfig(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

// newTestFieldWriter builds a FieldWriter with a disk-backed .tim and an
// in-memory scratch standing in for .tip, enough to drive the block
// emitter and index builder without a full segment Writer.
func newTestFieldWriter(t *testing.T, fi postings.FieldInfo, opts ...Option) (*FieldWriter, store.IndexOutput, *store.Scratch) {
	t.Helper()
	cfg, err := NewConfig(opts...)
	if err != nil {
		t.Fatal(err)
	}
	tim, err := store.CreateFileOutput(filepath.Join(t.TempDir(), "test.tim"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tim.Close() })

	pw := postings.NewSimpleCodec()
	if err := pw.Init(tim); err != nil {
		t.Fatal(err)
	}
	longsSize, err := pw.SetField(fi)
	if err != nil {
		t.Fatal(err)
	}
	fw := NewFieldWriter(cfg, tim, pw, fi, longsSize, 16)
	tip := store.NewScratch()
	return fw, tip, tip
}

func pushSimpleTerm(t *testing.T, fw *FieldWriter, pw *postings.SimpleCodec, term string, docFreq int, ttf int64) {
	t.Helper()
	consumer, err := fw.StartTerm([]byte(term))
	if err != nil {
		t.Fatalf("StartTerm(%q): %v", term, err)
	}
	_ = consumer
	ts := pw.NewTermState()
	ts.DocFreq = docFreq
	ts.TotalTermFreq = ttf
	if err := fw.FinishTerm([]byte(term), ts); err != nil {
		t.Fatalf("FinishTerm(%q): %v", term, err)
	}
}

func fieldInfoWithFreqs(name string) postings.FieldInfo {
	return postings.FieldInfo{Name: name, Number: 0, IndexOptions: postings.IndexOptionsDocsAndFreqs}
}

// TestFloorSplitAtRoot drives spec.md §8 scenario 1: five single-byte terms
// under min=2/max=4 must floor-split into {a,b} and {c,d,e}.
func TestFloorSplitAtRoot(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, tipOut, tipScratch := newTestFieldWriter(t, fi, WithMinItemsInBlock(2), WithMaxItemsInBlock(4))
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	for _, term := range []string{"a", "b", "c", "d", "e"} {
		pushSimpleTerm(t, fw, pw, term, 1, 1)
	}

	meta, err := fw.Finish(tipOut, 5, 5, 5)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if meta == nil {
		t.Fatal("Finish returned nil meta for a non-empty field")
	}
	if meta.NumTerms != 5 {
		t.Fatalf("NumTerms = %d, want 5", meta.NumTerms)
	}
	if string(meta.MinTerm) != "a" || string(meta.MaxTerm) != "e" {
		t.Fatalf("min/max = %q/%q, want a/e", meta.MinTerm, meta.MaxTerm)
	}

	in := store.NewByteArrayInput(meta.RootCode)
	raw, err := in.ReadVLong()
	if err != nil {
		t.Fatal(err)
	}
	fp, hasTerms, isFloor := decodeOutput(raw)
	if !hasTerms {
		t.Fatal("root entry hasTerms = false, want true")
	}
	if !isFloor {
		t.Fatal("root entry isFloor = false, want true (5 terms split at max=4)")
	}
	if fp < 0 {
		t.Fatalf("root entry fp = %d, want >= 0", fp)
	}

	numFloorSiblings, err := in.ReadVInt()
	if err != nil {
		t.Fatal(err)
	}
	if numFloorSiblings != 1 {
		t.Fatalf("numFloorSiblings = %d, want 1", numFloorSiblings)
	}
	leadByte, err := in.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if leadByte != 'c' {
		t.Fatalf("floor lead byte = %q, want 'c'", leadByte)
	}
	_, err = in.ReadVLong() // routed (delta<<1 | hasTerms)
	if err != nil {
		t.Fatal(err)
	}

	_ = tipScratch
}

// TestSingleBlockNoFloor drives spec.md §8 scenario 4: a single term never
// floor-splits and decodes isFloor = false.
func TestSingleBlockNoFloor(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, tipOut, _ := newTestFieldWriter(t, fi)
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	pushSimpleTerm(t, fw, pw, "x", 3, 3)

	meta, err := fw.Finish(tipOut, 3, 3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if meta.NumTerms != 1 {
		t.Fatalf("NumTerms = %d, want 1", meta.NumTerms)
	}
	if string(meta.MinTerm) != "x" || string(meta.MaxTerm) != "x" {
		t.Fatalf("min/max = %q/%q, want x/x", meta.MinTerm, meta.MaxTerm)
	}

	in := store.NewByteArrayInput(meta.RootCode)
	raw, err := in.ReadVLong()
	if err != nil {
		t.Fatal(err)
	}
	_, hasTerms, isFloor := decodeOutput(raw)
	if !hasTerms {
		t.Fatal("hasTerms = false, want true")
	}
	if isFloor {
		t.Fatal("isFloor = true, want false for a single term")
	}
}

// TestPrefixBlockFormsDuringStream drives spec.md §8 scenario 2: a shared
// prefix long enough to cross minItemsInBlock collapses into its own block
// before the field finishes, while shorter runs stay as loose terms.
func TestPrefixBlockFormsDuringStream(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, tipOut, _ := newTestFieldWriter(t, fi, WithMinItemsInBlock(2), WithMaxItemsInBlock(48))
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	for _, term := range []string{"apple", "apricot", "axle", "banana"} {
		pushSimpleTerm(t, fw, pw, term, 1, 1)
	}

	meta, err := fw.Finish(tipOut, 4, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if meta.NumTerms != 4 {
		t.Fatalf("NumTerms = %d, want 4", meta.NumTerms)
	}

	in := store.NewByteArrayInput(meta.RootCode)
	raw, err := in.ReadVLong()
	if err != nil {
		t.Fatal(err)
	}
	_, hasTerms, isFloor := decodeOutput(raw)
	if isFloor {
		t.Fatal("root isFloor = true, want false: only 2 root entries (block(a), banana)")
	}
	if !hasTerms {
		t.Fatal("root hasTerms = false, want true: banana is a direct term entry at the root")
	}
}

// TestFloorSplitOmittingEmptySuffixSibling drives a floor split whose first
// sibling's own entries are exactly the shared prefix itself
// (floorLeadByte == -1, e.g. "ab" sitting next to "aba"/"abb"/"abc"/"abd"):
// regression test for routingPrefix() stripping a trailing lead byte that
// writeBlock never appended for that sibling.
func TestFloorSplitOmittingEmptySuffixSibling(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, tipOut, _ := newTestFieldWriter(t, fi, WithMinItemsInBlock(2), WithMaxItemsInBlock(3))
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	for _, term := range []string{"ab", "aba", "abb", "abc", "abd"} {
		pushSimpleTerm(t, fw, pw, term, 1, 1)
	}

	meta, err := fw.Finish(tipOut, 5, 5, 5)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if meta.NumTerms != 5 {
		t.Fatalf("NumTerms = %d, want 5", meta.NumTerms)
	}

	if _, ok := fw.root.index.Get([]byte("ab")); !ok {
		t.Fatal(`root FST has no entry keyed "ab": the floor group's shared prefix was truncated`)
	}
	if _, ok := fw.root.index.Get([]byte("a")); ok {
		t.Fatal(`root FST unexpectedly has an entry keyed "a": the floor group prefix lost a byte it should have kept`)
	}
}

func TestEmptyFieldProducesNoMeta(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, tipOut, _ := newTestFieldWriter(t, fi)

	meta, err := fw.Finish(tipOut, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if meta != nil {
		t.Fatal("Finish on an empty field returned a non-nil meta")
	}
}

func TestStartTermRejectsOutOfOrder(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, _, _ := newTestFieldWriter(t, fi)
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	pushSimpleTerm(t, fw, pw, "b", 1, 1)
	if _, err := fw.StartTerm([]byte("a")); err == nil {
		t.Fatal("expected StartTerm with a non-increasing term to fail")
	}
}

func TestFinishTermRejectsBadStats(t *testing.T) {
	fi := fieldInfoWithFreqs("f")
	fw, _, _ := newTestFieldWriter(t, fi)
	pw := fw.postingsWriter.(*postings.SimpleCodec)

	if _, err := fw.StartTerm([]byte("a")); err != nil {
		t.Fatal(err)
	}
	ts := pw.NewTermState()
	ts.DocFreq = 0
	if err := fw.FinishTerm([]byte("a"), ts); err == nil {
		t.Fatal("expected FinishTerm with docFreq=0 to fail")
	}
}
