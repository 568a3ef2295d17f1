// Command blocktree-demo writes a tiny single-segment, single-field
// dictionary from the terms given as arguments (or one per line on stdin),
// sorted before writing, then prints how many terms it wrote and the paths
// of the .tim/.tip pair.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/blocktree-go/blocktree/blocktree"
	"github.com/blocktree-go/blocktree/postings"
	"github.com/blocktree-go/blocktree/segmentmanager"
	"github.com/blocktree-go/blocktree/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blocktree-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", ".", "directory to write the next segment_<N>.tim / .tip pair into")
	minItems := flag.Int("min", 25, "minItemsInBlock")
	maxItems := flag.Int("max", 48, "maxItemsInBlock")
	bloomEnabled := flag.Bool("bloom", false, "enable a per-field Bloom filter")
	flag.Parse()

	terms, err := readTerms(flag.Args())
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return fmt.Errorf("no terms given; pass them as positional args or pipe one per line on stdin")
	}
	sort.Strings(terms)

	opts := []blocktree.Option{
		blocktree.WithMinItemsInBlock(*minItems),
		blocktree.WithMaxItemsInBlock(*maxItems),
		blocktree.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}
	if *bloomEnabled {
		opts = append(opts, blocktree.WithBloomFilter(0.01))
	}
	cfg, err := blocktree.NewConfig(opts...)
	if err != nil {
		return fmt.Errorf("building config: %w", err)
	}

	ordinal, err := segmentmanager.NextOrdinal(*dir)
	if err != nil {
		return err
	}
	timPath, tipPath := segmentmanager.Paths(*dir, ordinal)

	tim, err := store.CreateFileOutput(timPath)
	if err != nil {
		return err
	}
	tip, err := store.CreateFileOutput(tipPath)
	if err != nil {
		return err
	}

	pw := postings.NewSimpleCodec()
	w, err := blocktree.NewWriter(cfg, tim, tip, pw)
	if err != nil {
		return err
	}

	fi := postings.FieldInfo{Name: "demo", Number: 0, IndexOptions: postings.IndexOptionsDocsAndFreqs}
	if err := w.StartField(fi, uint(len(terms))); err != nil {
		return err
	}

	var sumDocFreq, sumTotalTermFreq int64
	for _, t := range terms {
		if _, err := w.StartTerm([]byte(t)); err != nil {
			return err
		}
		ts := w.NewTermState()
		ts.DocFreq = 1
		ts.TotalTermFreq = 1
		if err := w.FinishTerm([]byte(t), ts); err != nil {
			return err
		}
		sumDocFreq++
		sumTotalTermFreq++
	}
	if err := w.FinishField(sumTotalTermFreq, sumDocFreq, len(terms)); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	fmt.Printf("wrote %d terms to %s and %s\n", len(terms), timPath, tipPath)
	return nil
}

func readTerms(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}
	var terms []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		terms = append(terms, line)
	}
	return terms, scanner.Err()
}
