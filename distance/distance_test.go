package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	assert.InDelta(t, math.Sqrt2, float64(L2(a, b)), 1e-6)
	assert.InDelta(t, 0, float64(L2(a, a)), 1e-6)
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{2, 0, 0}

	// Orthogonal vectors have distance 1, parallel vectors 0.
	assert.InDelta(t, 1, float64(Cosine(a, b)), 1e-6)
	assert.InDelta(t, 0, float64(Cosine(a, c)), 1e-6)
}

func TestDotNegated(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	// Larger dot product must sort as smaller distance.
	assert.InDelta(t, -32, float64(Dot(a, b)), 1e-6)
	assert.Less(t, Dot(a, b), Dot(a, []float32{0, 0, 0}))
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricL2, MetricCosine, MetricDot} {
		fn, err := Provider(m)
		require.NoError(t, err, m.String())
		require.NotNil(t, fn)
	}

	_, err := Provider(Metric(99))
	require.Error(t, err)
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "L2", MetricL2.String())
	assert.Equal(t, "Cosine", MetricCosine.String())
	assert.Equal(t, "Dot", MetricDot.String())
}
