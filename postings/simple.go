package postings

import (
	"fmt"

	"github.com/blocktree-go/blocktree/store"
)

// SimpleCodec is a minimal reference Writer implementation: every term
// carries one long per term (a running "postings file pointer") and no
// codec-private byte payload. It exists so the blocktree package and its
// tests have a concrete, working postings codec to drive, the way the
// teacher's diskSSTWriter is the one concrete SSTWriter the rest of the
// repo exercises.
type SimpleCodec struct {
	out      store.IndexOutput
	fi       FieldInfo
	nextFP   int64
	consumer *simpleConsumer
}

const simpleCodecName = "BlockTreeSimplePostings"

func NewSimpleCodec() *SimpleCodec {
	return &SimpleCodec{}
}

func (c *SimpleCodec) Init(out store.IndexOutput) error {
	c.out = out
	return store.WriteHeader(out, simpleCodecName, 1)
}

func (c *SimpleCodec) SetField(fi FieldInfo) (int, error) {
	c.fi = fi
	c.nextFP = 0
	return 1, nil
}

type simpleConsumer struct {
	codec *SimpleCodec
	n     int
}

func (sc *simpleConsumer) AddPosting() {
	sc.n++
}

func (sc *simpleConsumer) Close() error { return nil }

func (c *SimpleCodec) StartTerm() (PostingsConsumer, error) {
	c.consumer = &simpleConsumer{codec: c}
	return c.consumer, nil
}

func (c *SimpleCodec) NewTermState() *TermState {
	return &TermState{Longs: make([]int64, 1)}
}

func (c *SimpleCodec) FinishTerm(ts *TermState) error {
	if c.consumer == nil {
		return fmt.Errorf("postings: FinishTerm called without StartTerm")
	}
	if ts.DocFreq <= 0 {
		return fmt.Errorf("postings: docFreq must be > 0")
	}
	ts.Longs = append(ts.Longs[:0], c.nextFP)
	advance := int64(c.consumer.n)
	if advance == 0 {
		advance = 1 // keep file pointers strictly advancing per term
	}
	c.nextFP += advance
	c.consumer = nil
	return nil
}

func (c *SimpleCodec) EncodeTerm(longs []int64, bytesOut store.ScratchOutput, fi FieldInfo, ts *TermState, absolute bool) error {
	// A real codec would delta-code longs[0] against the previous term's
	// file pointer when !absolute; this reference codec has nothing
	// stateful to delta against beyond ts.Longs itself, so it writes the
	// value as given.
	copy(longs, ts.Longs)
	return nil
}

func (c *SimpleCodec) Close() error { return nil }
