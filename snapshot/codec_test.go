package snapshot

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshgo/grid"
)

func TestCompressBlock_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("particle coordinate block "), 512)

	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			block, err := compressBlock(data, compression)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(block), blockHeaderSize)

			decoded, err := decompressBlock(block, compression)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)

			if compression != CompressionNone {
				assert.Less(t, len(block), len(data))
			}
		})
	}
}

func TestCompressBlock_IncompressibleFallsBackToStored(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 4096)
	_, err := rng.Read(data)
	require.NoError(t, err)

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			block, err := compressBlock(data, compression)
			require.NoError(t, err)
			assert.Equal(t, blockHeaderSize+len(data), len(block))

			decoded, err := decompressBlock(block, compression)
			require.NoError(t, err)
			assert.Equal(t, data, decoded)
		})
	}
}

func TestCompressBlock_UnknownCompression(t *testing.T) {
	_, err := compressBlock([]byte("data"), Compression(9))
	assert.ErrorContains(t, err, "unknown compression")
}

func TestDecompressBlock_Errors(t *testing.T) {
	data := bytes.Repeat([]byte("compressible payload "), 256)

	block, err := compressBlock(data, CompressionLZ4)
	require.NoError(t, err)

	t.Run("truncated header", func(t *testing.T) {
		_, err := decompressBlock(block[:blockHeaderSize-1], CompressionLZ4)
		assert.ErrorContains(t, err, "too small")
	})

	t.Run("truncated payload", func(t *testing.T) {
		_, err := decompressBlock(block[:blockHeaderSize+2], CompressionLZ4)
		assert.ErrorContains(t, err, "too small")
	})

	t.Run("unknown compression", func(t *testing.T) {
		_, err := decompressBlock(block, Compression(9))
		assert.ErrorContains(t, err, "unknown compression")
	})
}

// benchmarkBlock builds one default-sized block of lattice-like positions,
// representative of what the writer feeds the codec.
func benchmarkBlock() []byte {
	positions := make([]grid.Vec3, DefaultBlockRows)
	for i := range positions {
		positions[i] = grid.Vec3{
			float64(i%64) * 0.5,
			float64((i/64)%64) * 0.5,
			float64(i/4096) * 0.5,
		}
	}
	return vec3Bytes(positions)
}

func BenchmarkCompressBlock(b *testing.B) {
	data := benchmarkBlock()

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		b.Run(compression.String(), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := compressBlock(data, compression); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecompressBlock(b *testing.B) {
	data := benchmarkBlock()

	for _, compression := range []Compression{CompressionLZ4, CompressionZSTD} {
		b.Run(compression.String(), func(b *testing.B) {
			block, err := compressBlock(data, compression)
			if err != nil {
				b.Fatal(err)
			}

			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := decompressBlock(block, compression); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
