// Package lsi applies tf-idf weighting to a term-document matrix and
// reduces it to a low-dimensional semantic space with a truncated SVD.
package lsi

import (
	"fmt"
	"math"

	"github.com/semtweets/cli/cmd/semtweets/cli/vspace"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DegeneratePolicy decides what ComputeTFIDF does with an all-zero row.
type DegeneratePolicy int

const (
	// DegenerateZeroFill leaves the row zero and records it.
	DegenerateZeroFill DegeneratePolicy = iota
	// DegenerateReject fails with *DegenerateDocumentError.
	DegenerateReject
)

// Indexer holds one run's semantic index. ComputeTFIDF and RankReducedSVD
// must be called in that order.
type Indexer struct {
	space  *vspace.Space
	policy DegeneratePolicy
	logger *zap.Logger

	weighted   bool
	degenerate []int

	// Rank-reduced SVD components.
	sigma    []float64  // top-k singular values, descending
	tk       *mat.Dense // terms x k
	dk       *mat.Dense // k x docs
	semantic *mat.Dense // diag(sigma) * dk
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithDegeneratePolicy sets how rows without terms are handled.
func WithDegeneratePolicy(p DegeneratePolicy) Option {
	return func(ix *Indexer) { ix.policy = p }
}

// WithLogger sets a logger for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Indexer) { ix.logger = l }
}

// New returns an Indexer over space. The space's matrix is rewritten in
// place by ComputeTFIDF.
func New(space *vspace.Space, opts ...Option) *Indexer {
	ix := &Indexer{space: space, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// ComputeTFIDF replaces every non-zero raw count with
// (count / row sum) * ln(docs / document frequency).
func (ix *Indexer) ComputeTFIDF() error {
	if ix.weighted {
		return ErrAlreadyWeighted
	}
	m := ix.space.Matrix()
	docs, terms := m.Dims()

	// Document frequencies come from the raw counts, before any cell is
	// rewritten.
	df := make([]float64, terms)
	rowSums := make([]float64, docs)
	for d := 0; d < docs; d++ {
		row := m.RawRowView(d)
		rowSums[d] = floats.Sum(row)
		for t, v := range row {
			if v != 0 {
				df[t]++
			}
		}
	}

	var degenerate []int
	for d, sum := range rowSums {
		if sum != 0 {
			continue
		}
		if ix.policy == DegenerateReject {
			return &DegenerateDocumentError{Row: d}
		}
		degenerate = append(degenerate, d)
		ix.logger.Warn("document has no terms, tf-idf row left zero", zap.Int("row", d))
	}

	n := float64(docs)
	for d := 0; d < docs; d++ {
		if rowSums[d] == 0 {
			continue
		}
		row := m.RawRowView(d)
		for t, v := range row {
			if v == 0 {
				continue
			}
			row[t] = (v / rowSums[d]) * math.Log(n/df[t])
		}
	}

	ix.degenerate = degenerate
	ix.weighted = true
	return nil
}

// Degenerate returns the rows left zero by ComputeTFIDF.
func (ix *Indexer) Degenerate() []int {
	return append([]int(nil), ix.degenerate...)
}

// MaxRank returns the largest k RankReducedSVD accepts.
func (ix *Indexer) MaxRank() int {
	docs, terms := ix.space.Matrix().Dims()
	return min(docs, terms)
}

// RankReducedSVD factorizes the terms x docs form of the tf-idf matrix and
// keeps the top k singular triplets. The rank is validated before any
// factorization work is done.
func (ix *Indexer) RankReducedSVD(k int) error {
	if !ix.weighted {
		return ErrNotWeighted
	}
	if maxRank := ix.MaxRank(); k < 1 || k > maxRank {
		return &InvalidRankError{K: k, Max: maxRank}
	}

	m := ix.space.Matrix()
	docs, terms := m.Dims()

	var svd mat.SVD
	if !svd.Factorize(m.T(), mat.SVDThin) {
		return ErrFactorize
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// Solver order is kept as-is: gonum returns singular values descending.
	sigma := make([]float64, k)
	copy(sigma, values[:k])

	tk := mat.DenseCopyOf(u.Slice(0, terms, 0, k))
	dk := mat.DenseCopyOf(v.Slice(0, docs, 0, k).T())

	// Rows left zero by ComputeTFIDF have no semantic vector; clear the
	// solver's rounding noise so they stay exactly zero.
	for _, d := range ix.degenerate {
		for i := 0; i < k; i++ {
			dk.Set(i, d, 0)
		}
	}

	semantic := mat.NewDense(k, docs, nil)
	semantic.Mul(mat.NewDiagDense(k, sigma), dk)

	ix.sigma = sigma
	ix.tk = tk
	ix.dk = dk
	ix.semantic = semantic

	ix.logger.Debug("rank-reduced svd",
		zap.Int("k", k),
		zap.Int("terms", terms),
		zap.Int("docs", docs),
		zap.Float64("sigma_max", sigma[0]),
		zap.Float64("sigma_min", sigma[k-1]),
	)
	return nil
}

// SemanticSpace returns the k x docs matrix diag(sigma_k) * D_k; column j
// is document j's semantic vector. Nil before RankReducedSVD.
func (ix *Indexer) SemanticSpace() *mat.Dense { return ix.semantic }

// SingularValues returns a copy of the retained singular values.
func (ix *Indexer) SingularValues() []float64 {
	return append([]float64(nil), ix.sigma...)
}

// TermBasis returns T_k, the terms x k orthonormal basis.
func (ix *Indexer) TermBasis() *mat.Dense { return ix.tk }

// DocumentVectors returns each document's semantic vector as its own slice.
func (ix *Indexer) DocumentVectors() ([][]float64, error) {
	if ix.semantic == nil {
		return nil, ErrNotReduced
	}
	_, docs := ix.semantic.Dims()
	out := make([][]float64, docs)
	for j := range out {
		out[j] = mat.Col(nil, j, ix.semantic)
	}
	return out, nil
}

// Reconstruct returns T_k * diag(sigma_k) * D_k, the rank-k approximation of
// the terms x docs tf-idf matrix.
func (ix *Indexer) Reconstruct() (*mat.Dense, error) {
	if ix.semantic == nil {
		return nil, ErrNotReduced
	}
	var out mat.Dense
	out.Mul(ix.tk, ix.semantic)
	return &out, nil
}

// ReconstructionError returns the Frobenius norm of the difference between
// the rank-k approximation and the tf-idf matrix.
func (ix *Indexer) ReconstructionError() (float64, error) {
	approx, err := ix.Reconstruct()
	if err != nil {
		return 0, err
	}
	var diff mat.Dense
	diff.Sub(approx, ix.space.Matrix().T())
	return mat.Norm(&diff, 2), nil
}

// ProjectTerms maps a vector of the semantic space back onto term weights
// (T_k * v), one weight per vocabulary column.
func (ix *Indexer) ProjectTerms(v []float64) ([]float64, error) {
	if ix.tk == nil {
		return nil, ErrNotReduced
	}
	terms, k := ix.tk.Dims()
	if len(v) != k {
		return nil, fmt.Errorf("lsi: vector has %d dimensions, semantic space has %d", len(v), k)
	}
	weights := make([]float64, terms)
	for i := range weights {
		weights[i] = floats.Dot(ix.tk.RawRowView(i), v)
	}
	return weights, nil
}
