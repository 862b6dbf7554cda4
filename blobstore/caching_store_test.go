package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hupe1980/meshgo/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBlob struct {
	data      []byte
	reads     int
	readBytes int
}

func (m *mockBlob) Close() error { return nil }
func (m *mockBlob) Size() int64  { return int64(len(m.data)) }

func (m *mockBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	m.reads++
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.readBytes += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *mockBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	end := min(off+length, int64(len(m.data)))
	return io.NopCloser(bytes.NewReader(m.data[off:end])), nil
}

type mockStore struct {
	blobs map[string]*mockBlob
	opens int
}

func (m *mockStore) Open(ctx context.Context, name string) (Blob, error) {
	m.opens++
	if b, ok := m.blobs[name]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) Create(ctx context.Context, name string) (WritableBlob, error) { return nil, nil }

func (m *mockStore) Put(ctx context.Context, name string, data []byte) error {
	if m.blobs == nil {
		m.blobs = make(map[string]*mockBlob)
	}
	m.blobs[name] = &mockBlob{data: data}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, name string) error             { return nil }
func (m *mockStore) List(ctx context.Context, prefix string) ([]string, error) { return nil, nil }

func TestCachingStore_ReadAt(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := &mockStore{
		blobs: map[string]*mockBlob{
			"test": {data: data},
		},
	}

	c := cache.NewLRUBlockCache(1024*1024, nil) // 1MB cache
	store := NewCachingStore(inner, c, 256)     // 256 byte blocks

	ctx := context.Background()
	blob, err := store.Open(ctx, "test")
	require.NoError(t, err)

	// 1. Read within the first block (bytes 0-100)
	buf := make([]byte, 100)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)

	// Block 0 was fetched whole
	mBlob := inner.blobs["test"]
	assert.Equal(t, 1, mBlob.reads)
	assert.Equal(t, 256, mBlob.readBytes)

	// 2. Read the same range again, should hit the cache
	n, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, 1, mBlob.reads)

	// 3. Read spanning blocks 0 and 1 (bytes 200-300). Block 0 is cached,
	// block 1 is not.
	buf2 := make([]byte, 100)
	n, err = blob.ReadAt(ctx, buf2, 200)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[200:300], buf2)

	// One more backend read for block 1
	assert.Equal(t, 2, mBlob.reads)
	assert.Equal(t, 256+256, mBlob.readBytes)

	// 4. Block 1 again, cache hit
	_, err = blob.ReadAt(ctx, buf2, 260)
	require.NoError(t, err)
	assert.Equal(t, 2, mBlob.reads)
}

func TestCachingStore_SmallFile(t *testing.T) {
	data := []byte("hello")
	inner := &mockStore{
		blobs: map[string]*mockBlob{
			"small": {data: data},
		},
	}
	c := cache.NewLRUBlockCache(1024, nil)
	store := NewCachingStore(inner, c, 256)

	ctx := context.Background()
	blob, err := store.Open(ctx, "small")
	require.NoError(t, err)

	// Reading past the end returns what exists plus io.EOF
	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.Equal(t, 5, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, data, buf[:n])
}

func TestCachingStore_Coalescing(t *testing.T) {
	inner := &mockStore{}
	require.NoError(t, inner.Put(context.Background(), "big", make([]byte, 64*1024)))

	// 1KB blocks
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024*1024, nil), 1024)

	ctx := context.Background()
	blob, err := store.Open(ctx, "big")
	require.NoError(t, err)

	// A cold 10KB read covers 10 missing blocks, which should coalesce
	// into a single backend request.
	buf := make([]byte, 10*1024)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 10*1024, n)
	assert.Equal(t, 1, inner.blobs["big"].reads)

	// Warm read touches the backend not at all
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.blobs["big"].reads)
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	inner := NewMemoryStore()
	c := cache.NewLRUBlockCache(1024*1024, nil)
	store := NewCachingStore(inner, c, 256)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "x.col", []byte("one")))

	blob, err := store.Open(ctx, "x.col")
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "one", string(buf))
	require.NoError(t, blob.Close())

	// Overwrite must drop the cached blocks of the old content
	require.NoError(t, store.Put(ctx, "x.col", []byte("two")))

	blob2, err := store.Open(ctx, "x.col")
	require.NoError(t, err)
	defer blob2.Close()

	_, err = blob2.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "two", string(buf))
}

func TestCachingStore_ReadRange(t *testing.T) {
	data := []byte("0123456789abcdef")
	inner := &mockStore{
		blobs: map[string]*mockBlob{
			"r": {data: data},
		},
	}
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 4)

	ctx := context.Background()
	blob, err := store.Open(ctx, "r")
	require.NoError(t, err)

	r, err := blob.ReadRange(ctx, 6, 6)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "6789ab", string(got))

	// Truncated at the end of the blob
	r, err = blob.ReadRange(ctx, 12, 100)
	require.NoError(t, err)
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "cdef", string(got))

	_, err = blob.ReadRange(ctx, 100, 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCachingStore_OpenMissing(t *testing.T) {
	store := NewCachingStore(&mockStore{}, cache.NewLRUBlockCache(1024, nil), 256)

	_, err := store.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
