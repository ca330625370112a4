package lsi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotWeighted is returned when RankReducedSVD runs before ComputeTFIDF.
	ErrNotWeighted = errors.New("lsi: tf-idf weights not computed")
	// ErrAlreadyWeighted is returned when ComputeTFIDF runs twice.
	ErrAlreadyWeighted = errors.New("lsi: tf-idf weights already computed")
	// ErrNotReduced is returned by accessors that need the SVD.
	ErrNotReduced = errors.New("lsi: rank-reduced SVD not computed")
	// ErrFactorize is returned when the SVD solver does not converge.
	ErrFactorize = errors.New("lsi: SVD factorization failed")
)

// DegenerateDocumentError reports a document row whose raw counts sum to
// zero, so its term frequencies are undefined.
type DegenerateDocumentError struct {
	Row int
}

func (e *DegenerateDocumentError) Error() string {
	return fmt.Sprintf("lsi: document %d has no terms, tf-idf undefined", e.Row)
}

// InvalidRankError reports a requested latent dimensionality outside
// [1, Max], where Max is min(documents, terms).
type InvalidRankError struct {
	K   int
	Max int
}

func (e *InvalidRankError) Error() string {
	return fmt.Sprintf("lsi: rank %d out of range, must be between 1 and %d", e.K, e.Max)
}
