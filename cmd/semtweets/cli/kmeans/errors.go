package kmeans

import (
	"errors"
	"fmt"
)

var (
	// ErrZeroNorm is returned when a cosine similarity involves a zero vector.
	ErrZeroNorm = errors.New("kmeans: zero-norm vector, cosine similarity undefined")
	// ErrDimensionMismatch is returned when vectors of different lengths meet.
	ErrDimensionMismatch = errors.New("kmeans: vector dimensions differ")
)

// InvalidClusterCountError reports a cluster count outside [1, Docs].
type InvalidClusterCountError struct {
	K    int
	Docs int
}

func (e *InvalidClusterCountError) Error() string {
	return fmt.Sprintf("kmeans: cluster count %d out of range, must be between 1 and %d", e.K, e.Docs)
}

// InvalidIterationsError reports a non-positive iteration bound.
type InvalidIterationsError struct {
	MaxIterations int
}

func (e *InvalidIterationsError) Error() string {
	return fmt.Sprintf("kmeans: max iterations must be positive, got %d", e.MaxIterations)
}

// ZeroNormError identifies the document and cluster whose similarity could
// not be computed. It unwraps to ErrZeroNorm.
type ZeroNormError struct {
	Document int
	Cluster  int
}

func (e *ZeroNormError) Error() string {
	return fmt.Sprintf("kmeans: document %d vs cluster %d: %v", e.Document, e.Cluster, ErrZeroNorm)
}

func (e *ZeroNormError) Unwrap() error { return ErrZeroNorm }
