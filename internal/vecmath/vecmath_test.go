package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical unit", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Dot(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNormalize(t *testing.T) {
	v, ok := Normalize([]float32{3, 4})
	require.True(t, ok)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	assert.InDelta(t, 1.0, Norm(v), 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	_, ok := Normalize(make([]float32, 512))
	assert.False(t, ok)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float32{2, 0}
	_, ok := Normalize(in)
	require.True(t, ok)
	assert.Equal(t, float32(2), in[0])
}

func TestNormalizedDotMatchesCosine(t *testing.T) {
	// Magnitude must not affect the score once both sides are normalized.
	a, ok := Normalize([]float32{1, 0, 0})
	require.True(t, ok)
	b, ok := Normalize([]float32{7.07, 7.07, 0})
	require.True(t, ok)
	assert.InDelta(t, 1/math.Sqrt2, Dot(a, b), 1e-4)
}
