package blocktree

import (
	"path/filepath"
	"testing"

	"github.com/blocktree-go/blocktree/postings"
	"github.com/blocktree-go/blocktree/store"
)

func openSegmentFiles(t *testing.T, dir string) (*store.FileOutput, *store.FileOutput) {
	t.Helper()
	tim, err := store.CreateFileOutput(filepath.Join(dir, "_0.tim"))
	if err != nil {
		t.Fatal(err)
	}
	tip, err := store.CreateFileOutput(filepath.Join(dir, "_0.tip"))
	if err != nil {
		t.Fatal(err)
	}
	return tim, tip
}

// TestWriterTwoFields drives spec.md §8 scenario 5: two fields, each with
// two terms, produce one field directory with numFields=2 and two
// indexStartFP entries in .tip.
func TestWriterTwoFields(t *testing.T) {
	dir := t.TempDir()
	tim, tip := openSegmentFiles(t, dir)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatal(err)
	}
	pw := postings.NewSimpleCodec()
	w, err := NewWriter(cfg, tim, tip, pw)
	if err != nil {
		t.Fatal(err)
	}

	fields := []struct {
		name  string
		terms []string
	}{
		{"a", []string{"alpha", "apple"}},
		{"b", []string{"bear", "boat"}},
	}

	for i, f := range fields {
		fi := postings.FieldInfo{Name: f.name, Number: i, IndexOptions: postings.IndexOptionsDocsAndFreqs}
		if err := w.StartField(fi, 8); err != nil {
			t.Fatalf("StartField(%s): %v", f.name, err)
		}
		var sumDF, sumTTF int64
		for _, term := range f.terms {
			if _, err := w.StartTerm([]byte(term)); err != nil {
				t.Fatalf("StartTerm(%s): %v", term, err)
			}
			ts := w.NewTermState()
			ts.DocFreq = 1
			ts.TotalTermFreq = 1
			if err := w.FinishTerm([]byte(term), ts); err != nil {
				t.Fatalf("FinishTerm(%s): %v", term, err)
			}
			sumDF++
			sumTTF++
		}
		if err := w.FinishField(sumTTF, sumDF, len(f.terms)); err != nil {
			t.Fatalf("FinishField(%s): %v", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(w.fields) != 2 {
		t.Fatalf("got %d field summaries, want 2", len(w.fields))
	}
	for i, fm := range w.fields {
		if fm.NumTerms != 2 {
			t.Fatalf("field %d: NumTerms = %d, want 2", i, fm.NumTerms)
		}
	}
	if w.fields[0].IndexStartFP >= w.fields[1].IndexStartFP {
		t.Fatalf("field indexStartFPs not increasing: %d, %d", w.fields[0].IndexStartFP, w.fields[1].IndexStartFP)
	}
}

// TestWriterDocsOnlyFieldOmitsTotalTermFreq drives spec.md §8 scenario 6: a
// docs-only field must not carry a real sumTotalTermFreq.
func TestWriterDocsOnlyFieldOmitsTotalTermFreq(t *testing.T) {
	dir := t.TempDir()
	tim, tip := openSegmentFiles(t, dir)

	pw := postings.NewSimpleCodec()
	w, err := NewWriter(nil, tim, tip, pw)
	if err != nil {
		t.Fatal(err)
	}

	fi := postings.FieldInfo{Name: "docs-only", Number: 0, IndexOptions: postings.IndexOptionsDocsOnly}
	if err := w.StartField(fi, 4); err != nil {
		t.Fatal(err)
	}
	for _, term := range []string{"one", "two"} {
		if _, err := w.StartTerm([]byte(term)); err != nil {
			t.Fatal(err)
		}
		ts := w.NewTermState()
		ts.DocFreq = 1
		if err := w.FinishTerm([]byte(term), ts); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FinishField(-1, 2, 2); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	if w.fields[0].SumTotalTermFreq != -1 {
		t.Fatalf("SumTotalTermFreq = %d, want -1 sentinel for a docs-only field", w.fields[0].SumTotalTermFreq)
	}
}

// TestBloomFilterTrailerRoundTrip drives SPEC_FULL.md §3's Bloom filter
// trailer: with the option enabled, FieldMeta carries the live filter and
// Close serializes it (flag/K/cap/bits) after the field directory.
func TestBloomFilterTrailerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	timPath := filepath.Join(dir, "_0.tim")
	tipPath := filepath.Join(dir, "_0.tip")
	tim, err := store.CreateFileOutput(timPath)
	if err != nil {
		t.Fatal(err)
	}
	tip, err := store.CreateFileOutput(tipPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(WithBloomFilter(0.01))
	if err != nil {
		t.Fatal(err)
	}
	pw := postings.NewSimpleCodec()
	w, err := NewWriter(cfg, tim, tip, pw)
	if err != nil {
		t.Fatal(err)
	}

	fi := postings.FieldInfo{Name: "f", Number: 0, IndexOptions: postings.IndexOptionsDocsAndFreqs}
	if err := w.StartField(fi, 4); err != nil {
		t.Fatal(err)
	}
	for _, term := range []string{"alpha", "beta"} {
		if _, err := w.StartTerm([]byte(term)); err != nil {
			t.Fatal(err)
		}
		ts := w.NewTermState()
		ts.DocFreq = 1
		ts.TotalTermFreq = 1
		if err := w.FinishTerm([]byte(term), ts); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.FinishField(2, 2, 2); err != nil {
		t.Fatal(err)
	}
	if w.fields[0].Bloom == nil {
		t.Fatal("expected field meta to carry a live Bloom filter")
	}
	wantK := w.fields[0].Bloom.K()

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	in, err := store.OpenFileInput(timPath)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	if err := store.VerifyFooter(in); err != nil {
		t.Fatalf("VerifyFooter: %v", err)
	}

	// Trailer layout: [... bloom trailer ...][dirStart int64][bloomStart int64][footer]
	if err := in.Seek(in.Length() - 28); err != nil {
		t.Fatal(err)
	}
	if _, err := in.ReadLong(); err != nil { // dirStart, unused here
		t.Fatal(err)
	}
	bloomStart, err := in.ReadLong()
	if err != nil {
		t.Fatal(err)
	}

	if err := in.Seek(bloomStart); err != nil {
		t.Fatal(err)
	}
	flag, err := in.ReadByte()
	if err != nil {
		t.Fatal(err)
	}
	if flag != 1 {
		t.Fatalf("bloom trailer flag = %d, want 1", flag)
	}
	k, err := in.ReadVInt()
	if err != nil {
		t.Fatal(err)
	}
	if uint(k) != wantK {
		t.Fatalf("bloom trailer K = %d, want %d", k, wantK)
	}
	if _, err := in.ReadVInt(); err != nil { // cap, not independently checked
		t.Fatal(err)
	}
	nBytes, err := in.ReadVInt()
	if err != nil {
		t.Fatal(err)
	}
	if nBytes == 0 {
		t.Fatal("bloom trailer byte count = 0, want > 0")
	}
	if _, err := in.ReadBytes(int(nBytes)); err != nil {
		t.Fatalf("reading %d bloom trailer bytes: %v", nBytes, err)
	}
}

// TestBloomFilterNilWhenDisabled confirms a field written without the
// Bloom filter option carries a nil FieldMeta.Bloom.
func TestBloomFilterNilWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	tim, tip := openSegmentFiles(t, dir)

	w, err := NewWriter(nil, tim, tip, postings.NewSimpleCodec())
	if err != nil {
		t.Fatal(err)
	}
	fi := postings.FieldInfo{Name: "f", Number: 0, IndexOptions: postings.IndexOptionsDocsAndFreqs}
	if err := w.StartField(fi, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := w.StartTerm([]byte("x")); err != nil {
		t.Fatal(err)
	}
	ts := w.NewTermState()
	ts.DocFreq = 1
	ts.TotalTermFreq = 1
	if err := w.FinishTerm([]byte("x"), ts); err != nil {
		t.Fatal(err)
	}
	if err := w.FinishField(1, 1, 1); err != nil {
		t.Fatal(err)
	}
	if w.fields[0].Bloom != nil {
		t.Fatal("expected nil Bloom filter when the option is disabled")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
