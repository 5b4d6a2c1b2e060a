// Package vecmath provides the vector primitives used by the similarity
// engine. All scoring accumulates in float64 to keep results stable across
// the native and brute-force strategies.
package vecmath

import "math"

// Dot returns the dot product of a and b. For unit vectors this is the
// cosine similarity. Slices of unequal length yield 0.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. The second return value is
// false when v has zero norm and cannot be normalized; the input is never
// mutated.
func Normalize(v []float32) ([]float32, bool) {
	norm := Norm(v)
	if norm == 0 {
		return nil, false
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}
