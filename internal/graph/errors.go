package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned on inserting a rowid that is already
	// indexed.
	ErrAlreadyExists = errors.New("node already exists")

	// ErrConfig is returned for an invalid or incompatible index
	// configuration.
	ErrConfig = errors.New("invalid index configuration")

	// ErrBatchActive is returned when beginning a batch while one is
	// already open.
	ErrBatchActive = errors.New("batch already active")
)

// DimensionMismatchError is returned when a vector's length does not match
// the index dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
