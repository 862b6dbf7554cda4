package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/hupe1980/meshgo/blobstore"
	"github.com/hupe1980/meshgo/comm"
	"github.com/hupe1980/meshgo/grid"
	"github.com/hupe1980/meshgo/internal/conv"
	"github.com/hupe1980/meshgo/resource"
	"github.com/hupe1980/meshgo/shm"
)

// ReaderOptions configures snapshot reading.
type ReaderOptions struct {
	// Aliases adds alias names on top of the stored datasets, in the
	// "PartTypeN/Name" form on both sides.
	Aliases map[string]string
	// Controller, when set, budgets column IO and, for shared reads,
	// the shared-array backing memory.
	Controller *resource.Controller
}

// WithAliases registers an alias table for dataset resolution.
func WithAliases(aliases map[string]string) func(*ReaderOptions) {
	return func(o *ReaderOptions) {
		o.Aliases = aliases
	}
}

// WithController budgets IO and shared memory through a resource
// controller.
func WithController(ctrl *resource.Controller) func(*ReaderOptions) {
	return func(o *ReaderOptions) {
		o.Controller = ctrl
	}
}

// Reader resolves dataset names against one snapshot's manifest and
// decodes its column blobs. Safe for concurrent use; a single Reader is
// typically shared by every rank of a group.
//
// Serial reads verify the whole-file checksum. The windowed collective
// read validates blocks by size only, since no rank sees the whole file.
type Reader struct {
	store    blobstore.BlobStore
	snapshot string
	manifest *Manifest
	datasets *Datasets
	ctrl     *resource.Controller
}

// NewReader opens a snapshot by name. Returns blobstore.ErrNotFound if
// the snapshot was never committed.
func NewReader(ctx context.Context, store blobstore.BlobStore, snapshot string, optFns ...func(*ReaderOptions)) (*Reader, error) {
	opts := ReaderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	manifest, err := LoadManifest(ctx, store, snapshot)
	if err != nil {
		return nil, err
	}

	datasets := NewDatasets(manifest)
	if err := datasets.SetupAliases(opts.Aliases); err != nil {
		return nil, err
	}

	return &Reader{
		store:    store,
		snapshot: snapshot,
		manifest: manifest,
		datasets: datasets,
		ctrl:     opts.Controller,
	}, nil
}

// OpenCurrent opens the snapshot the store's CURRENT pointer names.
func OpenCurrent(ctx context.Context, store blobstore.BlobStore, optFns ...func(*ReaderOptions)) (*Reader, error) {
	snapshot, err := CurrentSnapshot(ctx, store)
	if err != nil {
		return nil, err
	}
	return NewReader(ctx, store, snapshot, optFns...)
}

// Snapshot returns the snapshot name this reader resolves against.
func (r *Reader) Snapshot() string {
	return r.snapshot
}

// Manifest returns the snapshot's manifest.
func (r *Reader) Manifest() *Manifest {
	return r.manifest
}

// Datasets returns the resolution table, including any aliases.
func (r *Reader) Datasets() *Datasets {
	return r.datasets
}

// ReadVec3 reads a whole position-like dataset (float64, three columns).
func (r *Reader) ReadVec3(ctx context.Context, name string) ([]grid.Vec3, error) {
	hdr, data, index, err := r.loadColumn(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := wantLayout(name, hdr, DTypeFloat64, 3); err != nil {
		return nil, err
	}

	rows, err := conv.Uint64ToInt(hdr.Rows)
	if err != nil {
		return nil, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}

	out := make([]grid.Vec3, rows)
	if err := decodePayload(data, hdr, index, vec3Bytes(out)); err != nil {
		return nil, fmt.Errorf("snapshot: decode %q: %w", name, err)
	}
	return out, nil
}

// ReadFloat64 reads a whole scalar float64 dataset.
func (r *Reader) ReadFloat64(ctx context.Context, name string) ([]float64, error) {
	hdr, data, index, err := r.loadColumn(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := wantLayout(name, hdr, DTypeFloat64, 1); err != nil {
		return nil, err
	}

	rows, err := conv.Uint64ToInt(hdr.Rows)
	if err != nil {
		return nil, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}

	out := make([]float64, rows)
	if err := decodePayload(data, hdr, index, float64Bytes(out)); err != nil {
		return nil, fmt.Errorf("snapshot: decode %q: %w", name, err)
	}
	return out, nil
}

// ReadInt64 reads a whole scalar int64 dataset.
func (r *Reader) ReadInt64(ctx context.Context, name string) ([]int64, error) {
	hdr, data, index, err := r.loadColumn(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := wantLayout(name, hdr, DTypeInt64, 1); err != nil {
		return nil, err
	}

	rows, err := conv.Uint64ToInt(hdr.Rows)
	if err != nil {
		return nil, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}

	out := make([]int64, rows)
	if err := decodePayload(data, hdr, index, int64Bytes(out)); err != nil {
		return nil, fmt.Errorf("snapshot: decode %q: %w", name, err)
	}
	return out, nil
}

// ReadFloat64Columns reads a whole multi-column float64 dataset in
// row-major order, returning the values and the column count.
func (r *Reader) ReadFloat64Columns(ctx context.Context, name string) ([]float64, int, error) {
	hdr, data, index, err := r.loadColumn(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	if DType(hdr.DType) != DTypeFloat64 {
		return nil, 0, fmt.Errorf("snapshot: dataset %q holds %s, want float64", name, DType(hdr.DType))
	}

	rows, err := conv.Uint64ToInt(hdr.Rows)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}
	cols, err := conv.Uint32ToInt(hdr.Cols)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}

	out := make([]float64, rows*cols)
	if err := decodePayload(data, hdr, index, float64Bytes(out)); err != nil {
		return nil, 0, fmt.Errorf("snapshot: decode %q: %w", name, err)
	}
	return out, cols, nil
}

// ReadColumn reads one named column of a multi-column float64 dataset.
// The column is addressed by name through the dataset's named-column
// table, aliases included.
func (r *Reader) ReadColumn(ctx context.Context, name, column string) ([]float64, error) {
	ref, err := r.datasets.Resolve(name)
	if err != nil {
		return nil, err
	}
	idx, err := r.datasets.Column(ref.Name, column)
	if err != nil {
		return nil, err
	}

	all, cols, err := r.ReadFloat64Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	if idx >= cols {
		return nil, fmt.Errorf("snapshot: column %q of %q has index %d but only %d columns are stored", column, name, idx, cols)
	}

	out := make([]float64, len(all)/cols)
	for i := range out {
		out[i] = all[i*cols+idx]
	}
	return out, nil
}

// columnMeta is the per-column metadata rank 0 reads and broadcasts for
// a shared read.
type columnMeta struct {
	hdr   fileHeader
	index []uint64
	size  int64
	err   error
}

// ReadVec3Shared reads a position-like dataset into a fresh shared array,
// partitioning rows evenly across the group. Collective: every rank must
// call with the same name. Each rank fetches only the blocks covering its
// window; Sync publishes the full array before return.
//
// The caller owns the returned array and must Free it collectively.
func (r *Reader) ReadVec3Shared(ctx context.Context, c *comm.Comm, name string) (*shm.Array[grid.Vec3], error) {
	// Resolution is deterministic, so a failure here returns the same
	// error on every rank without any collective.
	ref, err := r.datasets.Resolve(name)
	if err != nil {
		return nil, err
	}
	blobName := r.columnBlob(ref)

	var meta columnMeta
	if c.Rank() == 0 {
		meta = r.readColumnMeta(ctx, blobName)
	}
	meta = comm.Bcast(c, 0, meta)
	if meta.err != nil {
		return nil, fmt.Errorf("snapshot: read %q: %w", name, meta.err)
	}
	if err := wantLayout(name, meta.hdr, DTypeFloat64, 3); err != nil {
		return nil, err
	}

	rows, err := conv.Uint64ToInt(meta.hdr.Rows)
	if err != nil {
		return nil, fmt.Errorf("snapshot: dataset %q: %w", name, err)
	}

	lo := rowStart(c.Rank(), c.Size(), rows)
	hi := rowStart(c.Rank()+1, c.Size(), rows)

	arr, err := shm.Allocate[grid.Vec3](ctx, c, hi-lo, func(o *shm.Options) {
		o.Controller = r.ctrl
	})
	if err != nil {
		return nil, err
	}

	rerr := r.readRowsInto(ctx, blobName, meta, lo, arr.Local())

	// Gather the outcome so every rank frees or publishes together.
	for rank, e := range comm.Allgather(c, rerr) {
		if e != nil {
			_ = arr.Free()
			return nil, fmt.Errorf("snapshot: read %q on rank %d: %w", name, rank, e)
		}
	}

	arr.Sync()
	return arr, nil
}

// rowStart returns the first row of rank r's window under an even split.
func rowStart(r, size, rows int) int {
	return int(int64(r) * int64(rows) / int64(size))
}

// readColumnMeta fetches and validates a column's header and block index.
func (r *Reader) readColumnMeta(ctx context.Context, blobName string) columnMeta {
	blob, err := r.store.Open(ctx, blobName)
	if err != nil {
		return columnMeta{err: err}
	}
	defer blob.Close()

	size := blob.Size()

	head := make([]byte, headerSize)
	if err := readFull(ctx, blob, head, 0); err != nil {
		return columnMeta{err: err}
	}
	hdr, err := decodeHeader(head)
	if err != nil {
		return columnMeta{err: err}
	}

	indexBytes := make([]byte, hdr.indexSize())
	if len(indexBytes) > 0 {
		if err := readFull(ctx, blob, indexBytes, headerSize); err != nil {
			return columnMeta{err: err}
		}
	}
	index, err := decodeIndex(hdr, indexBytes, size)
	if err != nil {
		return columnMeta{err: err}
	}

	return columnMeta{hdr: hdr, index: index, size: size}
}

// readRowsInto fills a rank's window [lo, lo+len(window)) from the blocks
// covering it, fetched as one contiguous span.
func (r *Reader) readRowsInto(ctx context.Context, blobName string, meta columnMeta, lo int, window []grid.Vec3) error {
	count := len(window)
	if count == 0 {
		return nil
	}

	rowBytes := meta.hdr.rowBytes()
	blockRows := int(meta.hdr.BlockRows)
	firstBlock := lo / blockRows
	lastBlock := (lo + count - 1) / blockRows

	spanStart := meta.index[firstBlock]
	spanEnd := uint64(meta.size)
	if lastBlock+1 < len(meta.index) {
		spanEnd = meta.index[lastBlock+1]
	}

	blob, err := r.store.Open(ctx, blobName)
	if err != nil {
		return err
	}
	defer blob.Close()

	if r.ctrl != nil {
		if err := r.ctrl.AcquireIO(ctx, int(spanEnd-spanStart)); err != nil {
			return err
		}
	}

	buf := make([]byte, spanEnd-spanStart)
	if err := readFull(ctx, blob, buf, int64(spanStart)); err != nil {
		return err
	}

	dst := vec3Bytes(window)
	for b := firstBlock; b <= lastBlock; b++ {
		blkStart := meta.index[b] - spanStart
		blkEnd := uint64(len(buf))
		if b+1 < len(meta.index) {
			blkEnd = meta.index[b+1] - spanStart
		}

		decoded, err := decompressBlock(buf[blkStart:blkEnd], Compression(meta.hdr.Compression))
		if err != nil {
			return err
		}

		nrows := meta.hdr.blockRowCount(b)
		if len(decoded) != nrows*rowBytes {
			return fmt.Errorf("%w: block %d decodes to %d bytes, want %d", ErrCorrupt, b, len(decoded), nrows*rowBytes)
		}

		// Intersect the block's rows with this rank's window.
		blockLo := b * blockRows
		copyLo := max(lo, blockLo)
		copyHi := min(lo+count, blockLo+nrows)
		copy(dst[(copyLo-lo)*rowBytes:(copyHi-lo)*rowBytes],
			decoded[(copyLo-blockLo)*rowBytes:(copyHi-blockLo)*rowBytes])
	}
	return nil
}

// loadColumn resolves a dataset name, reads the whole column blob and
// validates header, checksum and block index.
func (r *Reader) loadColumn(ctx context.Context, name string) (fileHeader, []byte, []uint64, error) {
	ref, err := r.datasets.Resolve(name)
	if err != nil {
		return fileHeader{}, nil, nil, err
	}

	if r.ctrl != nil {
		if err := r.ctrl.AcquireReadSlot(ctx); err != nil {
			return fileHeader{}, nil, nil, err
		}
		defer r.ctrl.ReleaseReadSlot()
	}

	data, err := r.readBlobBudgeted(ctx, r.columnBlob(ref))
	if err != nil {
		return fileHeader{}, nil, nil, fmt.Errorf("snapshot: read %q: %w", name, err)
	}

	hdr, err := decodeHeader(data)
	if err != nil {
		return fileHeader{}, nil, nil, fmt.Errorf("snapshot: read %q: %w", name, err)
	}
	if err := verifyChecksum(hdr, data); err != nil {
		return fileHeader{}, nil, nil, fmt.Errorf("snapshot: read %q: %w", name, err)
	}
	index, err := decodeIndex(hdr, data[headerSize:], int64(len(data)))
	if err != nil {
		return fileHeader{}, nil, nil, fmt.Errorf("snapshot: read %q: %w", name, err)
	}

	return hdr, data, index, nil
}

func (r *Reader) columnBlob(ref DatasetRef) string {
	return path.Join(r.snapshot, ref.PartType, ref.Name) + ColumnExt
}

// readBlobBudgeted loads a whole blob, charging its size against the IO
// budget when a controller is configured.
func (r *Reader) readBlobBudgeted(ctx context.Context, name string) ([]byte, error) {
	blob, err := r.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	size, err := conv.Uint64ToInt(uint64(blob.Size()))
	if err != nil {
		return nil, err
	}

	if r.ctrl != nil {
		if err := r.ctrl.AcquireIO(ctx, size); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	if err := readFull(ctx, blob, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodePayload decompresses every block of a column file into dst, which
// must hold exactly Rows*rowBytes bytes.
func decodePayload(data []byte, hdr fileHeader, index []uint64, dst []byte) error {
	rowBytes := hdr.rowBytes()
	blockRows := int(hdr.BlockRows)

	for b := range index {
		end := uint64(len(data))
		if b+1 < len(index) {
			end = index[b+1]
		}

		decoded, err := decompressBlock(data[index[b]:end], Compression(hdr.Compression))
		if err != nil {
			return err
		}

		nrows := hdr.blockRowCount(b)
		if len(decoded) != nrows*rowBytes {
			return fmt.Errorf("%w: block %d decodes to %d bytes, want %d", ErrCorrupt, b, len(decoded), nrows*rowBytes)
		}
		copy(dst[b*blockRows*rowBytes:], decoded)
	}
	return nil
}

// wantLayout checks a column's stored dtype and width.
func wantLayout(name string, hdr fileHeader, dtype DType, cols uint32) error {
	if DType(hdr.DType) != dtype || hdr.Cols != cols {
		return fmt.Errorf("snapshot: dataset %q holds %s with %d columns, want %s with %d",
			name, DType(hdr.DType), hdr.Cols, dtype, cols)
	}
	return nil
}

// readFull reads len(p) bytes at off, tolerating the io.EOF backends
// return at the exact end of a blob.
func readFull(ctx context.Context, blob blobstore.Blob, p []byte, off int64) error {
	n, err := blob.ReadAt(ctx, p, off)
	if err != nil && !(n == len(p) && errors.Is(err, io.EOF)) {
		return err
	}
	if n < len(p) {
		return io.ErrUnexpectedEOF
	}
	return nil
}
