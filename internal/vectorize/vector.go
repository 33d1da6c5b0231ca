// Package vectorize converts token sequences into comparable numeric vectors.
package vectorize

import "math"

// Vector is a comparable unit representation. Implementations are Sparse
// (term-weight map, TF-IDF) and Dense (fixed-dimension components, hashed
// n-grams). Dot between mismatched implementations is 0.
type Vector interface {
	Dot(other Vector) float64
	Norm() float64
}

// Sparse is a term -> weight vector.
type Sparse map[string]float64

// Dot returns the dot product with another vector; 0 unless other is Sparse.
func (s Sparse) Dot(other Vector) float64 {
	o, ok := other.(Sparse)
	if !ok {
		return 0
	}
	// Iterate the smaller map.
	if len(o) < len(s) {
		s, o = o, s
	}
	var dot float64
	for term, w := range s {
		if ow, found := o[term]; found {
			dot += w * ow
		}
	}
	return dot
}

// Norm returns the L2 norm.
func (s Sparse) Norm() float64 {
	var sum float64
	for _, w := range s {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// normalize scales s to unit length in place. A zero vector is unchanged.
func (s Sparse) normalize() {
	norm := s.Norm()
	if norm == 0 {
		return
	}
	for term := range s {
		s[term] /= norm
	}
}

// Dense is a fixed-dimension component vector.
type Dense []float32

// Dot returns the dot product with another vector; 0 unless other is a
// Dense of the same dimension.
func (d Dense) Dot(other Vector) float64 {
	o, ok := other.(Dense)
	if !ok || len(o) != len(d) {
		return 0
	}
	var dot float64
	for i := range d {
		dot += float64(d[i]) * float64(o[i])
	}
	return dot
}

// Norm returns the L2 norm.
func (d Dense) Norm() float64 {
	var sum float64
	for _, v := range d {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
