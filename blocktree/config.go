// Package blocktree implements the write side of a per-segment term
// dictionary and term index (spec.md): the pending stack, the block
// emitter (block formation + floor splitting), the index builder (FST
// folding), and the field writer/finalizer that drives one field at a
// time and produces the `.tim`/`.tip` pair plus a trailing field
// directory.
package blocktree

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	defaultMinItemsInBlock = 25
	defaultMaxItemsInBlock = 48
)

// Config holds the block-size parameters spec.md §6 recognizes.
type Config struct {
	minItemsInBlock int
	maxItemsInBlock int
	logger          *slog.Logger
	bloomFPRate     float64
	bloomEnabled    bool
}

// Option configures a Config, the same functional-options shape the
// teacher's segmentmanager.DiskSegmentManagerOption uses
// (WithMaxSegmentSize).
type Option func(*Config)

// WithMinItemsInBlock overrides the default (25).
func WithMinItemsInBlock(n int) Option {
	return func(c *Config) { c.minItemsInBlock = n }
}

// WithMaxItemsInBlock overrides the default (48).
func WithMaxItemsInBlock(n int) Option {
	return func(c *Config) { c.maxItemsInBlock = n }
}

// WithLogger attaches a structured logger; a nil logger (the default)
// discards all writer diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithBloomFilter enables a per-field Bloom filter over every pushed term,
// at the given target false-positive rate (spec supplement, see
// SPEC_FULL.md §3; grounded on the teacher's sst.diskSSTWriter bloom
// filter).
func WithBloomFilter(falsePositiveRate float64) Option {
	return func(c *Config) {
		c.bloomEnabled = true
		c.bloomFPRate = falsePositiveRate
	}
}

// NewConfig validates and builds a Config, rejecting the parameter
// combinations spec.md §4.2/§6/§8 calls out as invalid.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		minItemsInBlock: defaultMinItemsInBlock,
		maxItemsInBlock: defaultMaxItemsInBlock,
		bloomFPRate:     0.01,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.minItemsInBlock < 2 {
		return nil, fmt.Errorf("%w: minItemsInBlock must be >= 2, got %d", ErrInvalidConfig, c.minItemsInBlock)
	}
	if c.maxItemsInBlock < 1 {
		return nil, fmt.Errorf("%w: maxItemsInBlock must be >= 1, got %d", ErrInvalidConfig, c.maxItemsInBlock)
	}
	if c.minItemsInBlock > c.maxItemsInBlock {
		return nil, fmt.Errorf("%w: minItemsInBlock (%d) must be <= maxItemsInBlock (%d)", ErrInvalidConfig, c.minItemsInBlock, c.maxItemsInBlock)
	}
	if 2*(c.minItemsInBlock-1) > c.maxItemsInBlock {
		return nil, fmt.Errorf("%w: 2*(minItemsInBlock-1) must be <= maxItemsInBlock (min=%d, max=%d)", ErrInvalidConfig, c.minItemsInBlock, c.maxItemsInBlock)
	}
	return c, nil
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (c *Config) log() *slog.Logger {
	if c.logger == nil {
		return discardLogger
	}
	return c.logger
}

func (c *Config) newBloomFilter(estimatedTerms uint) *bloom.BloomFilter {
	if !c.bloomEnabled {
		return nil
	}
	if estimatedTerms == 0 {
		estimatedTerms = 1024
	}
	return bloom.NewWithEstimates(estimatedTerms, c.bloomFPRate)
}
