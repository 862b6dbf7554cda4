package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"unsafe"

	"github.com/hupe1980/meshgo/blobstore"
	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/internal/conv"
	"github.com/hupe1980/meshgo/internal/hash"
)

// WriterOptions configures column encoding.
type WriterOptions struct {
	// Compression selects the block codec. Defaults to CompressionNone.
	Compression Compression
	// BlockRows is the number of rows per compression block. Defaults to
	// DefaultBlockRows.
	BlockRows int
}

// WithCompression selects the block codec for written columns.
func WithCompression(c Compression) func(*WriterOptions) {
	return func(o *WriterOptions) {
		o.Compression = c
	}
}

// WithBlockRows sets the number of rows per compression block. Smaller
// blocks read with finer granularity, larger blocks compress better.
func WithBlockRows(rows int) func(*WriterOptions) {
	return func(o *WriterOptions) {
		o.BlockRows = rows
	}
}

// Writer encodes datasets into column blobs under one snapshot prefix and
// accumulates the matching manifest. Not safe for concurrent use.
//
// The usual sequence is a series of Write calls followed by Commit; a
// snapshot is invisible to manifest-resolving readers until Commit.
type Writer struct {
	store    blobstore.BlobStore
	snapshot string
	opts     WriterOptions
	manifest *Manifest
}

// NewWriter creates a writer for the given snapshot name ("snap_011").
func NewWriter(store blobstore.BlobStore, snapshot string, optFns ...func(*WriterOptions)) *Writer {
	opts := WriterOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Writer{
		store:    store,
		snapshot: snapshot,
		opts:     opts,
		manifest: NewManifest(snapshot),
	}
}

// WriteVec3 writes a position-like dataset with three float64 columns.
// The name takes the "PartTypeN/Name" form.
func (w *Writer) WriteVec3(ctx context.Context, name string, data []grid.Vec3) error {
	return w.write(ctx, name, vec3Bytes(data), uint64(len(data)), 3, DTypeFloat64)
}

// WriteFloat64 writes a scalar float64 dataset.
func (w *Writer) WriteFloat64(ctx context.Context, name string, data []float64) error {
	return w.write(ctx, name, float64Bytes(data), uint64(len(data)), 1, DTypeFloat64)
}

// WriteFloat64Columns writes a row-major multi-column float64 dataset.
// len(data) must be a multiple of cols. Pair with SetNamedColumns so
// readers can address columns by name.
func (w *Writer) WriteFloat64Columns(ctx context.Context, name string, data []float64, cols int) error {
	if cols < 1 {
		return fmt.Errorf("snapshot: dataset %q: cols must be >= 1, got %d", name, cols)
	}
	if len(data)%cols != 0 {
		return fmt.Errorf("snapshot: dataset %q: %d values do not fill rows of %d columns", name, len(data), cols)
	}
	cols32, err := conv.IntToUint32(cols)
	if err != nil {
		return fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}
	return w.write(ctx, name, float64Bytes(data), uint64(len(data)/cols), cols32, DTypeFloat64)
}

// WriteInt64 writes a scalar int64 dataset.
func (w *Writer) WriteInt64(ctx context.Context, name string, data []int64) error {
	return w.write(ctx, name, int64Bytes(data), uint64(len(data)), 1, DTypeInt64)
}

// SetNamedColumns records the column names of a multi-column dataset in
// storage order. The dataset name is the bare dataset ("ElementMassFractions"),
// not the "PartTypeN/Name" form.
func (w *Writer) SetNamedColumns(dset string, columns []string) {
	w.manifest.SetNamedColumns(dset, columns)
}

// Manifest returns the manifest accumulated so far.
func (w *Writer) Manifest() *Manifest {
	return w.manifest
}

// Commit writes the accumulated manifest, making the snapshot visible to
// readers.
func (w *Writer) Commit(ctx context.Context) error {
	return SaveManifest(ctx, w.store, w.manifest)
}

func (w *Writer) write(ctx context.Context, name string, raw []byte, rows uint64, cols uint32, dtype DType) error {
	ptype, dset, err := splitDatasetName(name)
	if err != nil {
		return fmt.Errorf("snapshot: dataset name: %w", err)
	}

	encoded, err := encodeColumn(raw, rows, cols, dtype, w.opts)
	if err != nil {
		return fmt.Errorf("snapshot: encode %q: %w", name, err)
	}

	blobName := path.Join(w.snapshot, name) + ColumnExt
	if err := w.store.Put(ctx, blobName, encoded); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", name, err)
	}

	w.manifest.AddDataset(ptype, dset)
	return nil
}

// encodeColumn builds a complete column file: header, block index, then
// one compressed block per BlockRows rows.
func encodeColumn(raw []byte, rows uint64, cols uint32, dtype DType, opts WriterOptions) ([]byte, error) {
	blockRows := opts.BlockRows
	if blockRows <= 0 {
		blockRows = DefaultBlockRows
	}
	blockRows32, err := conv.IntToUint32(blockRows)
	if err != nil {
		return nil, fmt.Errorf("rows per block: %w", err)
	}

	hdr := fileHeader{
		DType:       uint8(dtype),
		Compression: uint8(opts.Compression),
		Rows:        rows,
		Cols:        cols,
		BlockRows:   blockRows32,
	}

	n := hdr.numBlocks()
	rowBytes := hdr.rowBytes()
	if uint64(len(raw)) != rows*uint64(rowBytes) {
		return nil, fmt.Errorf("payload is %d bytes, want %d", len(raw), rows*uint64(rowBytes))
	}

	index := make([]uint64, n)
	var payload bytes.Buffer
	base := uint64(headerSize + n*8)

	for b := 0; b < n; b++ {
		start := b * blockRows * rowBytes
		end := start + hdr.blockRowCount(b)*rowBytes

		blk, err := compressBlock(raw[start:end], opts.Compression)
		if err != nil {
			return nil, err
		}
		index[b] = base + uint64(payload.Len())
		payload.Write(blk)
	}

	indexBytes := encodeIndex(index)

	crc := hash.NewCRC32C()
	crc.Write(indexBytes)
	crc.Write(payload.Bytes())
	hdr.Checksum = crc.Sum32()

	head, err := encodeHeader(&hdr)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(head)+len(indexBytes)+payload.Len())
	out = append(out, head...)
	out = append(out, indexBytes...)
	out = append(out, payload.Bytes()...)
	return out, nil
}

// Raw little-endian views of column data, matching the numeric layout on
// every platform this package targets.

func float64Bytes(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

func int64Bytes(v []int64) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

func vec3Bytes(v []grid.Vec3) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*int(unsafe.Sizeof(grid.Vec3{})))
}
