// Package kmeans clusters semantic-space document vectors with K-Means
// using cosine similarity.
package kmeans

import (
	"fmt"
	"math"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ZeroNormPolicy decides what happens when a similarity involves a zero
// vector (an empty document, or a centroid averaged from empty documents).
type ZeroNormPolicy int

const (
	// ZeroNormAsZero scores the pair as similarity 0.
	ZeroNormAsZero ZeroNormPolicy = iota
	// ZeroNormReject fails the run with *ZeroNormError.
	ZeroNormReject
)

// Document is a semantic vector tagged with its corpus index.
type Document struct {
	Index  int
	Vector []float64
}

// Cluster is one group of documents. Documents holds corpus indices in
// corpus order.
type Cluster struct {
	Tag       int
	Centroid  []float64
	Documents []int
}

// Result is the outcome of a clustering run.
type Result struct {
	Clusters   []Cluster
	Iterations int
	// Converged is true when the last iteration reproduced the previous
	// assignment; false when the iteration bound stopped the loop.
	Converged bool
}

// Engine clusters a fixed set of documents.
type Engine struct {
	documents []Document
	norms     []float64
	dims      int

	init    Initializer
	policy  ZeroNormPolicy
	workers int
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithInitializer sets the centroid initializer.
func WithInitializer(i Initializer) Option {
	return func(e *Engine) { e.init = i }
}

// WithSeed uses a NormalInitializer seeded with seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.init = NewNormalInitializer(seed) }
}

// WithZeroNormPolicy sets the zero-norm policy.
func WithZeroNormPolicy(p ZeroNormPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithWorkers computes assignments on n goroutines. Results do not depend
// on n.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithLogger sets a logger for per-iteration diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine whose documents are the columns of space (k x docs).
func New(space *mat.Dense, opts ...Option) *Engine {
	dims, docs := space.Dims()
	documents := make([]Document, docs)
	for j := range documents {
		documents[j] = Document{Index: j, Vector: mat.Col(nil, j, space)}
	}
	return newEngine(documents, dims, opts)
}

// FromVectors returns an Engine over vectors; vector i is document i.
func FromVectors(vectors [][]float64, opts ...Option) (*Engine, error) {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	documents := make([]Document, len(vectors))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("document %d has %d dimensions, want %d: %w", i, len(v), dims, ErrDimensionMismatch)
		}
		documents[i] = Document{Index: i, Vector: slices.Clone(v)}
	}
	return newEngine(documents, dims, opts), nil
}

func newEngine(documents []Document, dims int, opts []Option) *Engine {
	e := &Engine{
		documents: documents,
		dims:      dims,
		workers:   1,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.init == nil {
		e.init = NewNormalInitializer(time.Now().UnixNano())
	}
	e.norms = make([]float64, len(documents))
	for i, d := range documents {
		e.norms[i] = floats.Norm(d.Vector, 2)
	}
	return e
}

// Documents returns the number of documents.
func (e *Engine) Documents() int { return len(e.documents) }

// Cluster partitions the documents into k clusters. It stops after
// maxIterations iterations, or earlier once an iteration assigns every
// cluster exactly the documents it had in the previous iteration.
func (e *Engine) Cluster(k, maxIterations int) (*Result, error) {
	n := len(e.documents)
	if k < 1 || k > n {
		return nil, &InvalidClusterCountError{K: k, Docs: n}
	}
	if maxIterations < 1 {
		return nil, &InvalidIterationsError{MaxIterations: maxIterations}
	}

	centroids := make([][]float64, k)
	for c := range centroids {
		centroids[c] = e.init.Centroid(c, e.dims)
		if len(centroids[c]) != e.dims {
			return nil, fmt.Errorf("initial centroid %d has %d dimensions, want %d: %w",
				c, len(centroids[c]), e.dims, ErrDimensionMismatch)
		}
	}

	assignment := make([]int, n)
	var previous [][]int
	var members [][]int
	iterations := 0
	converged := false

	for iterations < maxIterations {
		// Every document is compared against the same centroid snapshot;
		// centroids are replaced only after all assignments are made.
		if err := e.assign(centroids, assignment); err != nil {
			return nil, err
		}

		members = make([][]int, k)
		for pos, c := range assignment {
			members[c] = append(members[c], pos)
		}
		for c := range centroids {
			if len(members[c]) > 0 {
				centroids[c] = e.mean(members[c])
			}
		}
		iterations++

		e.logger.Debug("kmeans iteration",
			zap.Int("iteration", iterations),
			zap.Int("empty_clusters", countEmpty(members)),
		)

		if previous != nil && sameAssignment(previous, members) {
			converged = true
			break
		}
		previous = members
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		docs := make([]int, len(members[c]))
		for i, pos := range members[c] {
			docs[i] = e.documents[pos].Index
		}
		clusters[c] = Cluster{Tag: c, Centroid: centroids[c], Documents: docs}
	}
	return &Result{Clusters: clusters, Iterations: iterations, Converged: converged}, nil
}

// assign writes the best cluster of every document into out.
func (e *Engine) assign(centroids [][]float64, out []int) error {
	cnorms := make([]float64, len(centroids))
	for c, v := range centroids {
		cnorms[c] = floats.Norm(v, 2)
	}

	n := len(e.documents)
	if e.workers <= 1 || n < 2 {
		for pos := 0; pos < n; pos++ {
			best, err := e.nearest(pos, centroids, cnorms)
			if err != nil {
				return err
			}
			out[pos] = best
		}
		return nil
	}

	// Each goroutine owns a disjoint range of out.
	var g errgroup.Group
	chunk := (n + e.workers - 1) / e.workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for pos := start; pos < end; pos++ {
				best, err := e.nearest(pos, centroids, cnorms)
				if err != nil {
					return err
				}
				out[pos] = best
			}
			return nil
		})
	}
	return g.Wait()
}

// nearest returns the index of the most similar centroid; ties go to the
// lowest index.
func (e *Engine) nearest(pos int, centroids [][]float64, cnorms []float64) (int, error) {
	doc := e.documents[pos]
	best, bestSim := 0, math.Inf(-1)
	for c, centroid := range centroids {
		var sim float64
		if e.norms[pos] == 0 || cnorms[c] == 0 {
			if e.policy == ZeroNormReject {
				return 0, &ZeroNormError{Document: doc.Index, Cluster: c}
			}
		} else {
			sim = floats.Dot(doc.Vector, centroid) / (e.norms[pos] * cnorms[c])
		}
		if sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best, nil
}

// mean returns the elementwise mean of the documents at positions.
func (e *Engine) mean(positions []int) []float64 {
	centroid := make([]float64, e.dims)
	for _, pos := range positions {
		floats.Add(centroid, e.documents[pos].Vector)
	}
	floats.Scale(1/float64(len(positions)), centroid)
	return centroid
}

// sameAssignment compares two assignments cluster by cluster, in order.
func sameAssignment(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if !slices.Equal(a[c], b[c]) {
			return false
		}
	}
	return true
}

func countEmpty(members [][]int) int {
	n := 0
	for _, m := range members {
		if len(m) == 0 {
			n++
		}
	}
	return n
}

// CosineSimilarity returns a·b / (|a| |b|).
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, ErrZeroNorm
	}
	return floats.Dot(a, b) / (na * nb), nil
}
