package sqlite

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/glowmatch/glowmatch/store"
)

// float32ArrayToBLOB converts a []float32 to a little-endian BLOB.
// It validates that the vector has the expected dimension.
func float32ArrayToBLOB(vec []float32) ([]byte, error) {
	if len(vec) != store.EmbeddingDim {
		return nil, errors.Errorf("invalid vector dimension: got %d, want %d", len(vec), store.EmbeddingDim)
	}

	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf, nil
}

// blobToFloat32Array is the inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	expectedLen := store.EmbeddingDim * 4
	if len(blob) != expectedLen {
		return nil, errors.Errorf("invalid BLOB length: got %d, want %d", len(blob), expectedLen)
	}

	vec := make([]float32, store.EmbeddingDim)
	for i := 0; i < store.EmbeddingDim; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
