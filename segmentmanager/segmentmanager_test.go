package segmentmanager

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNextOrdinalEmptyDir(t *testing.T) {
	dir := t.TempDir()
	id, err := NextOrdinal(dir)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("NextOrdinal = %d, want 1", id)
	}
}

func TestNextOrdinalSkipsGaps(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_1.tim", "segment_3.tim", "segment_3.tip", "segment_2.tip"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	id, err := NextOrdinal(dir)
	if err != nil {
		t.Fatal(err)
	}
	if id != 4 {
		t.Fatalf("NextOrdinal = %d, want 4 (highest .tim ordinal is 3)", id)
	}
}

func TestNextOrdinalIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"segment_5.tim", "notes.txt", "segment_x.tim"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	id, err := NextOrdinal(dir)
	if err != nil {
		t.Fatal(err)
	}
	if id != 6 {
		t.Fatalf("NextOrdinal = %d, want 6", id)
	}
}

func TestPaths(t *testing.T) {
	tim, tip := Paths("/data", 7)
	if tim != filepath.Join("/data", "segment_7.tim") {
		t.Fatalf("tim path = %q", tim)
	}
	if tip != filepath.Join("/data", "segment_7.tip") {
		t.Fatalf("tip path = %q", tip)
	}
}
