package vecdisk

import (
	"github.com/vecdisk/vecdisk/distance"
)

// CreateOptions holds the per-index parameters fixed at creation time.
// Dims, Metric and MaxNeighbors can never change afterwards; changing them
// changes the block size and requires a full rebuild. Alpha and
// InsertListSize also require a rebuild to change safely.
type CreateOptions struct {
	// Dims is the vector dimension.
	Dims int

	// Metric selects the distance function (L2, cosine, dot).
	Metric distance.Metric

	// MaxNeighbors bounds each node's edge list.
	MaxNeighbors int

	// Alpha is the pruning diversity factor, typically 1.0-2.0. Higher
	// values keep more distant, diverse edges.
	Alpha float32

	// InsertListSize is the beam width used for neighbor discovery on
	// insert.
	InsertListSize int

	// SearchListSize is the default beam width for search; overridable per
	// query via WithSearchList.
	SearchListSize int
}

// DefaultCreateOptions returns sensible defaults for the given dimension.
func DefaultCreateOptions(dims int) CreateOptions {
	return CreateOptions{
		Dims:           dims,
		Metric:         distance.MetricL2,
		MaxNeighbors:   64,
		Alpha:          1.2,
		InsertListSize: 128,
		SearchListSize: 100,
	}
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	cacheCapacity    int
}

// Option configures Create/Open behavior.
type Option func(*options)

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures operational metrics collection.
// If nil is passed, metrics are disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCacheCapacity sets the block cache capacity in blocks. The cache may
// exceed it temporarily while every entry is pinned by an in-flight
// traversal. Defaults to 512.
func WithCacheCapacity(capacity int) Option {
	return func(o *options) {
		o.cacheCapacity = capacity
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		cacheCapacity:    512,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

type searchOptions struct {
	searchList int
}

// SearchOption configures a single search call.
type SearchOption func(*searchOptions)

// WithSearchList overrides the index's default search beam width for one
// query. Larger values trade latency for recall. No persistence implication.
func WithSearchList(searchList int) SearchOption {
	return func(o *searchOptions) {
		o.searchList = searchList
	}
}
