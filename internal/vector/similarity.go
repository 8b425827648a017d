// Package vector provides similarity measures for dense and sparse vectors and an in-memory
// store of dense vectors.
package vector

import "math"

// Sparse is a sparse vector keyed by column index.
type Sparse map[int]float64

// Norm returns the L2 norm of the sparse vector.
func (s Sparse) Norm() float64 {
	var sum float64
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// InnerProduct returns the inner product of two vectors of equal length, or 0 otherwise.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// CosineDense returns the cosine similarity of a and b clipped to [0,1]. Mismatched lengths
// and zero-magnitude vectors yield 0.
func CosineDense(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return clip01(InnerProduct(a, b) / (na * nb))
}

// CosineSparse returns the cosine similarity of a and b clipped to [0,1]. Zero-magnitude
// vectors yield 0.
func CosineSparse(a, b Sparse) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	// iterate the smaller map
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, v := range a {
		dot += v * b[k]
	}
	return clip01(dot / (na * nb))
}

func clip01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}
