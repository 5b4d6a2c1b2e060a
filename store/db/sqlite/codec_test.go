package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowmatch/glowmatch/store"
)

func TestFloat32ArrayToBLOBRoundTrip(t *testing.T) {
	vec := make([]float32, store.EmbeddingDim)
	vec[0] = 1.5
	vec[7] = -0.25
	vec[store.EmbeddingDim-1] = 3.125

	blob, err := float32ArrayToBLOB(vec)
	require.NoError(t, err)
	require.Len(t, blob, store.EmbeddingDim*4)

	got, err := blobToFloat32Array(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestFloat32ArrayToBLOBRejectsWrongDimension(t *testing.T) {
	_, err := float32ArrayToBLOB(make([]float32, 256))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid vector dimension")
}

func TestBlobToFloat32ArrayRejectsTruncatedBlob(t *testing.T) {
	_, err := blobToFloat32Array(make([]byte, 12))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid BLOB length")
}
