package corpus

import (
	"math/rand"
	"sort"
)

// Sample returns n records chosen uniformly at random, in corpus order.
// n <= 0 or n >= len(records) returns records unchanged.
func Sample(records []Record, n int, seed int64) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec
	picked := rng.Perm(len(records))[:n]
	sort.Ints(picked)

	out := make([]Record, n)
	for i, idx := range picked {
		out[i] = records[idx]
	}
	return out
}
