// Package segmentmanager picks the next free segment ordinal in a
// directory of block-tree segments, so repeated writer runs against the
// same directory append a new segment_N pair instead of overwriting one.
package segmentmanager

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var segmentFileNamePattern = regexp.MustCompile(`^segment_(\d+)\.tim$`)

// NextOrdinal scans dir for segment_<N>.tim files and returns one greater
// than the highest N found, or 1 if dir has none yet. dir is created if it
// does not exist.
func NextOrdinal(dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("segmentmanager: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("segmentmanager: %w", err)
	}

	var ids []int
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		matches := segmentFileNamePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(matches[1], "%d", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 1, nil
	}
	sort.Ints(ids)
	return ids[len(ids)-1] + 1, nil
}

// Paths returns the .tim/.tip file paths for the given segment ordinal
// inside dir, following the segment_<N>.tim / segment_<N>.tip naming the
// rest of the module reads with NextOrdinal.
func Paths(dir string, ordinal int) (timPath, tipPath string) {
	base := filepath.Join(dir, fmt.Sprintf("segment_%d", ordinal))
	return base + ".tim", base + ".tip"
}
