package core

import "math"

// Dot calculates the dot product of two vectors. Mismatched lengths are
// truncated to the shorter vector rather than treated as an error.
func Dot(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of a vector.
func Norm(a []float32) float32 {
	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sum))
}

// Normalize returns a unit-length copy of the vector. Zero vectors are
// returned unchanged.
func Normalize(a []float32) []float32 {
	n := Norm(a)
	out := make([]float32, len(a))
	if n == 0 {
		copy(out, a)
		return out
	}
	for i, v := range a {
		out[i] = v / n
	}
	return out
}

// Cosine computes the cosine similarity between two vectors. Either vector
// being zero-length or zero-norm yields 0.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}
