package store

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// Magic constants frame every file this module writes: a fixed header
// magic, a codec name + version, and a fixed footer magic followed by a
// CRC32 checksum. Grounded on spec.md §4.4 ("Both files are then closed
// with ... followed by a codec footer") and on the teacher's crc32.NewIEEE
// use in wal.go/sst/writer.go for the checksum itself.
const (
	headerMagic uint32 = 0x3fd76c17
	footerMagic uint32 = 0x063524ff
)

// ErrCodecMismatch is returned when a file's header does not carry the
// expected codec name.
var ErrCodecMismatch = errors.New("codec mismatch")

// ErrChecksumMismatch is returned when a file's trailing CRC32 does not
// match its contents.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// footerSize is the fixed on-disk width of WriteFooter's output: footerMagic
// vInt-encodes to 4 bytes (constant, since it's a fixed constant value) and
// the trailing checksum is always a fixed 8-byte WriteLong.
const footerSize = 4 + 8

// WriteHeader writes the codec header: magic, codec name, version.
func WriteHeader(out IndexOutput, codecName string, version uint32) error {
	if err := out.WriteVInt(headerMagic); err != nil {
		return fmt.Errorf("failed to write header magic: %w", err)
	}
	if err := out.WriteVInt(uint32(len(codecName))); err != nil {
		return fmt.Errorf("failed to write codec name length: %w", err)
	}
	if err := out.WriteBytes([]byte(codecName)); err != nil {
		return fmt.Errorf("failed to write codec name: %w", err)
	}
	if err := out.WriteVInt(version); err != nil {
		return fmt.Errorf("failed to write codec version: %w", err)
	}
	return nil
}

// WriteFooter writes the fixed footer magic and the CRC32 digest of
// everything written to out before the footer.
func WriteFooter(out *FileOutput) error {
	checksum := out.Checksum()
	if err := out.WriteVInt(footerMagic); err != nil {
		return fmt.Errorf("failed to write footer magic: %w", err)
	}
	if err := out.WriteLong(int64(checksum)); err != nil {
		return fmt.Errorf("failed to write footer checksum: %w", err)
	}
	return nil
}

// IndexInput is a sequential, seekable byte source with vInt/vLong decoding,
// the read-side counterpart of IndexOutput. It keeps no checksum of its own;
// VerifyFooter recomputes one from the bytes it reads.
// Grounded on vasth-golucene/index/postings.go's references to
// store.IndexInput (ReadVInt/ReadVLong/ReadBytes/Seek/Length/Clone).
type IndexInput interface {
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
	ReadVInt() (uint32, error)
	ReadVLong() (uint64, error)
	ReadLong() (int64, error)
	Seek(pos int64) error
	FilePointer() int64
	Length() int64
}

// CheckHeader reads and validates the header written by WriteHeader,
// returning the codec version found. Grounded on
// vasth-golucene/index/postings.go's readHeader/readIndexHeader, which call
// codec.CheckHeader(input, name, minVersion, maxVersion).
func CheckHeader(in IndexInput, codecName string, minVersion, maxVersion uint32) (uint32, error) {
	magic, err := in.ReadVInt()
	if err != nil {
		return 0, fmt.Errorf("failed to read header magic: %w", err)
	}
	if magic != headerMagic {
		return 0, fmt.Errorf("%w: bad header magic %x", ErrCodecMismatch, magic)
	}
	nameLen, err := in.ReadVInt()
	if err != nil {
		return 0, fmt.Errorf("failed to read codec name length: %w", err)
	}
	nameBytes, err := in.ReadBytes(int(nameLen))
	if err != nil {
		return 0, fmt.Errorf("failed to read codec name: %w", err)
	}
	if string(nameBytes) != codecName {
		return 0, fmt.Errorf("%w: got %q want %q", ErrCodecMismatch, nameBytes, codecName)
	}
	version, err := in.ReadVInt()
	if err != nil {
		return 0, fmt.Errorf("failed to read codec version: %w", err)
	}
	if version < minVersion || version > maxVersion {
		return 0, fmt.Errorf("%w: unsupported version %d (want [%d,%d])", ErrCodecMismatch, version, minVersion, maxVersion)
	}
	return version, nil
}

// VerifyFooter reads the footer WriteFooter appended to in and recomputes
// the CRC32 (IEEE) of everything preceding it, returning ErrChecksumMismatch
// if the stored digest disagrees. This is the read-side half of spec.md
// §4.4's "opening a malformed file must fail with a codec-mismatch or
// checksum-mismatch error" — grounded on the teacher's wal.go log-record
// reader, which recomputes crc32.ChecksumIEEE(payload) and compares it
// against the storedCRC read back from disk.
func VerifyFooter(in IndexInput) error {
	total := in.Length()
	if total < footerSize {
		return fmt.Errorf("%w: file too short (%d bytes) to carry a footer", ErrChecksumMismatch, total)
	}
	footerStart := total - footerSize

	if err := in.Seek(footerStart); err != nil {
		return fmt.Errorf("failed to seek to footer: %w", err)
	}
	magic, err := in.ReadVInt()
	if err != nil {
		return fmt.Errorf("failed to read footer magic: %w", err)
	}
	if magic != footerMagic {
		return fmt.Errorf("%w: bad footer magic %x", ErrChecksumMismatch, magic)
	}
	stored, err := in.ReadLong()
	if err != nil {
		return fmt.Errorf("failed to read footer checksum: %w", err)
	}

	if err := in.Seek(0); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	content, err := in.ReadBytes(int(footerStart))
	if err != nil {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	if actual := crc32.ChecksumIEEE(content); actual != uint32(stored) {
		return fmt.Errorf("%w: got %x want %x", ErrChecksumMismatch, actual, uint32(stored))
	}
	return nil
}
