package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddingRoundtrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.14159, 0, 1e-8}

	data := EncodeEmbedding(vec)
	require.Len(t, data, 20)

	decoded, err := DecodeEmbedding(data)
	require.NoError(t, err)
	require.Equal(t, vec, decoded)
}

func TestEmbeddingByteLayout(t *testing.T) {
	// 1.0 is 0x3f800000; little-endian on the wire.
	data := EncodeEmbedding([]float32{1.0})
	require.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, data)
}

func TestEmbeddingEmpty(t *testing.T) {
	require.Nil(t, EncodeEmbedding(nil))
	require.Nil(t, EncodeEmbedding([]float32{}))

	decoded, err := DecodeEmbedding(nil)
	require.NoError(t, err)
	require.Nil(t, decoded)
}

func TestEmbeddingMalformed(t *testing.T) {
	_, err := DecodeEmbedding([]byte{1, 2, 3})
	require.Error(t, err)
}
