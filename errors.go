package vecdisk

import (
	"errors"
	"fmt"

	"github.com/vecdisk/vecdisk/blockstore"
	"github.com/vecdisk/vecdisk/internal/graph"
)

var (
	// ErrNotFound is returned when a rowid is not indexed.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when inserting a rowid that is already
	// indexed.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrClosed is returned when operating on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrConfig is returned for an invalid index configuration, or for a
	// configuration that does not match what the store was created with.
	ErrConfig = errors.New("invalid index configuration")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, blockstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, graph.ErrAlreadyExists) {
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	}
	if errors.Is(err, graph.ErrConfig) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	var dm *graph.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	return err
}
