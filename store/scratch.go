package store

import "bytes"

// Scratch is a reusable in-memory ScratchOutput. The block emitter keeps one
// per scratch buffer (suffix/stats/meta) and calls Reset after each flush —
// spec.md §4.2 step 6 / §9 "shared scratch buffers".
type Scratch struct {
	buf bytes.Buffer
}

func NewScratch() *Scratch { return &Scratch{} }

func (s *Scratch) WriteByte(b byte) error {
	return s.buf.WriteByte(b)
}

// Write implements io.Writer so a Scratch can be handed directly to
// anything that serializes via the standard io.Writer contract (e.g. a
// bloom.BloomFilter's WriteTo).
func (s *Scratch) Write(b []byte) (int, error) {
	return s.buf.Write(b)
}

func (s *Scratch) WriteBytes(b []byte) error {
	_, err := s.buf.Write(b)
	return err
}

func (s *Scratch) WriteVInt(v uint32) error  { return WriteVInt(s, v) }
func (s *Scratch) WriteVLong(v uint64) error { return WriteVLong(s, v) }

func (s *Scratch) WriteLong(v int64) error {
	return s.WriteBytes([]byte{
		byte(v >> 56), byte(v >> 48), byte(v >> 40), byte(v >> 32),
		byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v),
	})
}

func (s *Scratch) FilePointer() int64 { return int64(s.buf.Len()) }

func (s *Scratch) WriteTo(dst IndexOutput) error {
	return dst.WriteBytes(s.buf.Bytes())
}

func (s *Scratch) Reset() { s.buf.Reset() }

func (s *Scratch) Len() int { return s.buf.Len() }

func (s *Scratch) Bytes() []byte { return s.buf.Bytes() }
