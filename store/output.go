// Package store provides the sequential output/input sink abstraction the
// Block-Tree writer and reader speak: vInt/vLong-coded byte streams with
// known file offsets, plus header/footer framing and a CRC32 checksum.
//
// The directory/output abstraction itself is out of scope for this
// repository (spec.md §1 treats it as an external collaborator); this
// package supplies the one concrete, file-backed implementation the rest
// of the module needs to run and be tested.
package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
)

// IndexOutput is a sequential byte sink with a known current offset.
type IndexOutput interface {
	WriteByte(b byte) error
	WriteBytes(b []byte) error
	WriteVInt(v uint32) error
	WriteVLong(v uint64) error
	WriteLong(v int64) error // fixed big-endian 8 bytes, used by the trailer
	FilePointer() int64
}

// ScratchOutput is an in-memory IndexOutput that can be flushed into another
// IndexOutput and reused across terms/blocks without reallocating.
type ScratchOutput interface {
	IndexOutput
	WriteTo(dst IndexOutput) error
	Reset()
	Len() int
	Bytes() []byte
}

// FileOutput is the disk-backed IndexOutput used by the segment Writer. It
// mirrors the teacher's direct-os.File writing style (no buffering layer)
// and keeps a running CRC32 digest and byte offset instead of calling
// Seek/Stat on every write, the way sst.diskSSTWriter tracks offsets via
// repeated Seek(0, io.SeekCurrent) calls — except here we avoid the syscall
// by counting locally, since the Block-Tree writer never seeks backward.
type FileOutput struct {
	f      *os.File
	off    int64
	digest uint32
	crcTbl *crc32.Table
}

func NewFileOutput(f *os.File) *FileOutput {
	return &FileOutput{f: f, crcTbl: crc32.IEEETable}
}

func CreateFileOutput(path string) (*FileOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return NewFileOutput(f), nil
}

func (o *FileOutput) WriteByte(b byte) error {
	if _, err := o.f.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to write byte: %w", err)
	}
	o.digest = crc32.Update(o.digest, o.crcTbl, []byte{b})
	o.off++
	return nil
}

func (o *FileOutput) WriteBytes(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	n, err := o.f.Write(b)
	if err != nil {
		return fmt.Errorf("failed to write bytes: %w", err)
	}
	o.digest = crc32.Update(o.digest, o.crcTbl, b[:n])
	o.off += int64(n)
	return nil
}

func (o *FileOutput) WriteVInt(v uint32) error  { return WriteVInt(o, v) }
func (o *FileOutput) WriteVLong(v uint64) error { return WriteVLong(o, v) }

func (o *FileOutput) WriteLong(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return o.WriteBytes(buf[:])
}

func (o *FileOutput) FilePointer() int64 { return o.off }

// Checksum returns the CRC32 (IEEE) of every byte written so far.
func (o *FileOutput) Checksum() uint32 { return o.digest }

func (o *FileOutput) Close() error {
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

func (o *FileOutput) Sync() error {
	if err := o.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	return nil
}

// CloseAll closes every closer, suppressing all but the first error —
// grounded on the teacher's segmentmanager.Close best-effort pattern,
// generalized to several sinks the way spec.md §7 requires (both output
// sinks plus the postings writer are closed on any failure).
func CloseAll(closers ...interface{ Close() error }) error {
	var first error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
