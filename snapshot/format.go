package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/meshgo/internal/hash"
)

const (
	// Magic identifies meshgo column files (ASCII: "MGSC").
	Magic = 0x4D475343
	// FormatVersion is the current column file format version.
	FormatVersion = 1

	// ColumnExt is the blob name suffix of stored columns.
	ColumnExt = ".col"

	// DefaultBlockRows is the number of rows per compression block when
	// the writer is not configured otherwise.
	DefaultBlockRows = 8192
)

var (
	// ErrInvalidMagic is returned when a blob is not a meshgo column file.
	ErrInvalidMagic = errors.New("snapshot: invalid magic number")
	// ErrInvalidVersion is returned for column files written by an
	// unsupported format version.
	ErrInvalidVersion = errors.New("snapshot: unsupported format version")
	// ErrChecksum is returned when a column file fails its payload
	// checksum.
	ErrChecksum = errors.New("snapshot: column checksum mismatch")
	// ErrCorrupt is returned when a column file is structurally invalid.
	ErrCorrupt = errors.New("snapshot: corrupt column file")
)

// DType identifies the element type of a stored column.
type DType uint8

const (
	// DTypeFloat64 marks IEEE-754 double precision elements.
	DTypeFloat64 DType = 1
	// DTypeInt64 marks signed 64-bit integer elements.
	DTypeInt64 DType = 2
)

func (d DType) String() string {
	switch d {
	case DTypeFloat64:
		return "float64"
	case DTypeInt64:
		return "int64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// elemSize returns the encoded size of one element in bytes.
func (d DType) elemSize() int {
	return 8
}

// fileHeader is the 48-byte header at the start of every column file.
// All multi-byte fields are little-endian. The header is followed by the
// block index (one uint64 file offset per block) and the block payload.
type fileHeader struct {
	Magic       uint32 // 0x4D475343 ("MGSC")
	Version     uint32 // File format version
	DType       uint8  // 1=float64, 2=int64
	Compression uint8  // 0=none, 1=lz4, 2=zstd
	Padding1    [2]byte
	Rows        uint64 // Number of rows
	Cols        uint32 // Elements per row (1 for scalars, 3 for positions)
	BlockRows   uint32 // Rows per compression block
	Checksum    uint32 // CRC32C of everything after the header
	Reserved    [16]byte
}

const headerSize = 48

func encodeHeader(hdr *fileHeader) ([]byte, error) {
	hdr.Magic = Magic
	hdr.Version = FormatVersion

	var buf bytes.Buffer
	buf.Grow(headerSize)
	if err := binary.Write(&buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeHeader(data []byte) (fileHeader, error) {
	var hdr fileHeader
	if len(data) < headerSize {
		return hdr, fmt.Errorf("%w: %d bytes, shorter than header", ErrCorrupt, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return hdr, err
	}
	if hdr.Magic != Magic {
		return hdr, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, hdr.Magic)
	}
	if hdr.Version != FormatVersion {
		return hdr, fmt.Errorf("%w: got %d", ErrInvalidVersion, hdr.Version)
	}
	if hdr.Rows > 0 && hdr.BlockRows == 0 {
		return hdr, fmt.Errorf("%w: zero rows per block", ErrCorrupt)
	}
	return hdr, nil
}

// numBlocks returns how many compression blocks the column payload holds.
func (h fileHeader) numBlocks() int {
	if h.Rows == 0 {
		return 0
	}
	br := uint64(h.BlockRows)
	return int((h.Rows + br - 1) / br)
}

// blockRowCount returns the number of rows in block b.
func (h fileHeader) blockRowCount(b int) int {
	lo := uint64(b) * uint64(h.BlockRows)
	n := uint64(h.BlockRows)
	if lo+n > h.Rows {
		n = h.Rows - lo
	}
	return int(n)
}

// rowBytes returns the encoded size of one row.
func (h fileHeader) rowBytes() int {
	return DType(h.DType).elemSize() * int(h.Cols)
}

// indexSize returns the byte length of the block index.
func (h fileHeader) indexSize() int {
	return h.numBlocks() * 8
}

func encodeIndex(index []uint64) []byte {
	buf := make([]byte, len(index)*8)
	for i, off := range index {
		binary.LittleEndian.PutUint64(buf[i*8:], off)
	}
	return buf
}

// decodeIndex parses the block index from the bytes following the header
// and validates that offsets are in bounds and monotonically increasing.
func decodeIndex(hdr fileHeader, data []byte, fileSize int64) ([]uint64, error) {
	n := hdr.numBlocks()
	if len(data) < n*8 {
		return nil, fmt.Errorf("%w: truncated block index", ErrCorrupt)
	}

	index := make([]uint64, n)
	prev := uint64(headerSize + n*8)
	for i := range index {
		off := binary.LittleEndian.Uint64(data[i*8:])
		if off < prev || off > uint64(fileSize) {
			return nil, fmt.Errorf("%w: block %d offset %d out of range", ErrCorrupt, i, off)
		}
		index[i] = off
		prev = off
	}
	return index, nil
}

// verifyChecksum checks the whole-file payload checksum.
func verifyChecksum(hdr fileHeader, data []byte) error {
	if crc := hash.CRC32C(data[headerSize:]); crc != hdr.Checksum {
		return fmt.Errorf("%w: got 0x%08x, want 0x%08x", ErrChecksum, crc, hdr.Checksum)
	}
	return nil
}
