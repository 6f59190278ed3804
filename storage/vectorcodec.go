package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Vectors are persisted as zstd-compressed little-endian float32 buffers.
// The encoding is lossless; compression typically shrinks embedding blobs by
// half or more since neighboring components share exponent bytes.

var (
	vectorEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	vectorDecoder, _ = zstd.NewReader(nil)
)

// EncodeVector serializes a vector into a compact compressed blob.
// An empty vector encodes to nil.
func EncodeVector(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}

	raw := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	return vectorEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
}

// DecodeVector deserializes a blob produced by EncodeVector.
// A nil or empty blob decodes to nil.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	raw, err := vectorDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if len(raw)%4 != 0 {
		return nil, ErrTruncatedData
	}

	vector := make([]float32, len(raw)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vector, nil
}
