package store

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Embeddings are persisted as packed little-endian IEEE 754 float32
// values, 4 bytes per dimension, no header. This matches the layout the
// sibling services write and keeps the BLOB size at exactly 4*D bytes.

// EncodeEmbedding serializes a vector for BLOB storage. A nil or empty
// vector encodes to nil, which the schema stores as NULL.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding deserializes a BLOB written by EncodeEmbedding.
func DecodeEmbedding(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%4 != 0 {
		return nil, errors.Errorf("malformed embedding blob: %d bytes is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
