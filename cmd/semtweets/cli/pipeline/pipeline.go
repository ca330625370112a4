// Package pipeline wires the vector space builder, the semantic indexer and
// the clustering engine into one call.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/semtweets/cli/cmd/semtweets/cli/kmeans"
	"github.com/semtweets/cli/cmd/semtweets/cli/lsi"
	"github.com/semtweets/cli/cmd/semtweets/cli/vspace"
	"go.uber.org/zap"
)

// Params are the caller-supplied model sizes.
type Params struct {
	LatentDims    int
	Clusters      int
	MaxIterations int
}

// Topic is a cluster ready for presentation. ID is its rank by size
// (0 = most documents); Tag is the clustering engine's cluster index.
type Topic struct {
	ID        int
	Tag       int
	Centroid  []float64
	Documents []int
	Keywords  []string
}

// Result is the outcome of one pipeline run.
type Result struct {
	Topics         []Topic
	Iterations     int
	Converged      bool
	Seed           int64
	Documents      int
	Terms          int
	SingularValues []float64
	Degenerate     []int
	Elapsed        time.Duration
}

// Pipeline holds the configuration shared by runs. A Pipeline keeps no
// state between runs.
type Pipeline struct {
	tokenizer   vspace.Tokenizer
	logger      *zap.Logger
	seed        int64
	seeded      bool
	initializer kmeans.Initializer
	workers     int
	degenerate  lsi.DegeneratePolicy
	zeroNorm    kmeans.ZeroNormPolicy
	keywords    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTokenizer replaces the default tokenizer.
func WithTokenizer(t vspace.Tokenizer) Option {
	return func(p *Pipeline) { p.tokenizer = t }
}

// WithLogger sets the logger passed down to every stage.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithSeed fixes the seed of the centroid initializer. Without it every run
// draws a fresh seed, reported in Result.Seed.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) {
		p.seed = seed
		p.seeded = true
	}
}

// WithInitializer replaces the seeded normal initializer entirely.
func WithInitializer(i kmeans.Initializer) Option {
	return func(p *Pipeline) { p.initializer = i }
}

// WithWorkers sets the number of goroutines used for cluster assignment.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithDegeneratePolicy sets how documents without terms are handled.
func WithDegeneratePolicy(d lsi.DegeneratePolicy) Option {
	return func(p *Pipeline) { p.degenerate = d }
}

// WithZeroNormPolicy sets how zero vectors are scored during clustering.
func WithZeroNormPolicy(z kmeans.ZeroNormPolicy) Option {
	return func(p *Pipeline) { p.zeroNorm = z }
}

// WithKeywords attaches the n highest-weighted terms to every non-empty
// topic. Zero disables keywords.
func WithKeywords(n int) Option {
	return func(p *Pipeline) { p.keywords = n }
}

// New returns a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		tokenizer: vspace.NewTokenizer(),
		logger:    zap.NewNop(),
		workers:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run clusters documents into params.Clusters topics found in a
// params.LatentDims-dimensional semantic space. Topics are sorted by size,
// largest first.
func Run(documents []string, latentDims, clusters, maxIterations int) ([]kmeans.Cluster, error) {
	res, err := New().Run(documents, Params{
		LatentDims:    latentDims,
		Clusters:      clusters,
		MaxIterations: maxIterations,
	})
	if err != nil {
		return nil, err
	}
	out := make([]kmeans.Cluster, len(res.Topics))
	for i, t := range res.Topics {
		out[i] = kmeans.Cluster{Tag: t.Tag, Centroid: t.Centroid, Documents: t.Documents}
	}
	return out, nil
}

// Run executes one pipeline run. Errors keep their kind: callers can use
// errors.Is and errors.As against the vspace, lsi and kmeans error types.
func (p *Pipeline) Run(documents []string, params Params) (*Result, error) {
	start := time.Now()

	// Cheap parameter checks first, so a bad cluster count does not cost
	// an SVD.
	if params.Clusters < 1 || params.Clusters > len(documents) {
		if len(documents) == 0 {
			return nil, fmt.Errorf("vector space: %w", vspace.ErrEmptyCorpus)
		}
		return nil, fmt.Errorf("clustering: %w", &kmeans.InvalidClusterCountError{K: params.Clusters, Docs: len(documents)})
	}
	if params.MaxIterations < 1 {
		return nil, fmt.Errorf("clustering: %w", &kmeans.InvalidIterationsError{MaxIterations: params.MaxIterations})
	}

	space, err := vspace.Build(documents, p.tokenizer)
	if err != nil {
		return nil, fmt.Errorf("vector space: %w", err)
	}
	p.logger.Debug("vector space built",
		zap.Int("documents", space.Docs()),
		zap.Int("terms", space.TermCount()),
	)

	ix := lsi.New(space, lsi.WithDegeneratePolicy(p.degenerate), lsi.WithLogger(p.logger))
	if err := ix.ComputeTFIDF(); err != nil {
		return nil, fmt.Errorf("tf-idf: %w", err)
	}
	if err := ix.RankReducedSVD(params.LatentDims); err != nil {
		return nil, fmt.Errorf("semantic index: %w", err)
	}

	seed := p.seed
	if !p.seeded {
		seed = time.Now().UnixNano()
	}
	init := p.initializer
	if init == nil {
		init = kmeans.NewNormalInitializer(seed)
	}
	engine := kmeans.New(ix.SemanticSpace(),
		kmeans.WithInitializer(init),
		kmeans.WithZeroNormPolicy(p.zeroNorm),
		kmeans.WithWorkers(p.workers),
		kmeans.WithLogger(p.logger),
	)
	clustered, err := engine.Cluster(params.Clusters, params.MaxIterations)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	topics := make([]Topic, len(clustered.Clusters))
	for i, c := range clustered.Clusters {
		topics[i] = Topic{Tag: c.Tag, Centroid: c.Centroid, Documents: c.Documents}
		if p.keywords > 0 && len(c.Documents) > 0 {
			kw, err := keywords(ix, space, c.Centroid, p.keywords)
			if err != nil {
				return nil, fmt.Errorf("keywords: %w", err)
			}
			topics[i].Keywords = kw
		}
	}
	SortTopics(topics)

	res := &Result{
		Topics:         topics,
		Iterations:     clustered.Iterations,
		Converged:      clustered.Converged,
		Seed:           seed,
		Documents:      space.Docs(),
		Terms:          space.TermCount(),
		SingularValues: ix.SingularValues(),
		Degenerate:     ix.Degenerate(),
		Elapsed:        time.Since(start),
	}
	p.logger.Info("pipeline finished",
		zap.Int("documents", res.Documents),
		zap.Int("terms", res.Terms),
		zap.Int("topics", len(res.Topics)),
		zap.Int("iterations", res.Iterations),
		zap.Bool("converged", res.Converged),
		zap.Int64("seed", res.Seed),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// SortTopics orders topics by member count, largest first, keeping tag
// order among equals, and renumbers their IDs.
func SortTopics(topics []Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		return len(topics[i].Documents) > len(topics[j].Documents)
	})
	for i := range topics {
		topics[i].ID = i
	}
}

// keywords returns the n terms with the largest positive weight once the
// centroid is projected back onto the term space.
func keywords(ix *lsi.Indexer, space *vspace.Space, centroid []float64, n int) ([]string, error) {
	weights, err := ix.ProjectTerms(centroid)
	if err != nil {
		return nil, err
	}
	cols := make([]int, 0, len(weights))
	for i, w := range weights {
		if w > 0 {
			cols = append(cols, i)
		}
	}
	sort.SliceStable(cols, func(a, b int) bool {
		return weights[cols[a]] > weights[cols[b]]
	})
	if len(cols) > n {
		cols = cols[:n]
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = space.Term(c)
	}
	return out, nil
}
