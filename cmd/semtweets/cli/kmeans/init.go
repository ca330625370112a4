package kmeans

import "math/rand"

// DefaultScale spreads initial centroids across the typical magnitude of
// semantic-space vectors.
const DefaultScale = 10.0

// Initializer produces the starting centroid of a cluster.
type Initializer interface {
	Centroid(tag, dims int) []float64
}

// NormalInitializer draws each centroid dimension independently from a
// standard normal distribution, multiplied by a scale factor.
type NormalInitializer struct {
	rng   *rand.Rand
	scale float64
}

// NewNormalInitializer returns a NormalInitializer with DefaultScale and a
// source seeded with seed. Equal seeds give equal centroids.
func NewNormalInitializer(seed int64) *NormalInitializer {
	return &NormalInitializer{
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec
		scale: DefaultScale,
	}
}

// Centroid implements Initializer.
func (n *NormalInitializer) Centroid(_ int, dims int) []float64 {
	v := make([]float64, dims)
	for i := range v {
		v[i] = n.scale * n.rng.NormFloat64()
	}
	return v
}
