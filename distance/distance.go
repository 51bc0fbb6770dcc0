// Package distance provides the vector distance functions used by the index.
// All functions are SIMD-accelerated via vek32 (AVX2 on x86-64, NEON on ARM64).
//
// Every metric is oriented so that smaller means closer: dot product is
// negated and cosine is reported as 1 - similarity. A single index always
// uses a single metric, fixed at creation time.
package distance

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// L2 calculates the Euclidean distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func L2(a, b []float32) float32 {
	return vek32.Distance(a, b)
}

// Cosine calculates the cosine distance (1 - cosine similarity) between
// two vectors. Assumes vectors are the same length.
func Cosine(a, b []float32) float32 {
	return 1 - vek32.CosineSimilarity(a, b)
}

// Dot calculates the negated dot product of two vectors, so that a larger
// dot product sorts as a smaller distance.
func Dot(a, b []float32) float32 {
	return -vek32.Dot(a, b)
}

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	MetricL2 Metric = iota
	MetricCosine
	MetricDot
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricCosine:
		return "Cosine"
	case MetricDot:
		return "Dot"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return L2, nil
	case MetricCosine:
		return Cosine, nil
	case MetricDot:
		return Dot, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
