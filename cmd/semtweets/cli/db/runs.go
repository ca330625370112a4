package db

import (
	"database/sql"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/semtweets/cli/cmd/semtweets/cli/pipeline"
)

// SaveRun stores a pipeline result and returns the new run id. tweetIDs maps
// document positions to stored tweet ids and may be nil for file corpora.
func SaveRun(d *sql.DB, res *pipeline.Result, params pipeline.Params, tweetIDs []string, source string) (string, error) {
	now := time.Now()
	entropy := rand.New(rand.NewSource(now.UnixNano())) //nolint:gosec
	id := ulid.MustNew(ulid.Timestamp(now), entropy).String()

	run := RunRow{
		ID:            id,
		CreatedAt:     now,
		Seed:          res.Seed,
		LatentDims:    params.LatentDims,
		Clusters:      params.Clusters,
		MaxIterations: params.MaxIterations,
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		Documents:     res.Documents,
		Terms:         res.Terms,
		ElapsedMs:     res.Elapsed.Milliseconds(),
		Source:        source,
	}

	clusters := make([]ClusterRow, len(res.Topics))
	for i, t := range res.Topics {
		c := ClusterRow{
			Rank:       t.ID,
			Tag:        t.Tag,
			Keywords:   t.Keywords,
			Centroid:   t.Centroid,
			DocIndexes: t.Documents,
		}
		if tweetIDs != nil {
			c.TweetIDs = make([]string, len(t.Documents))
			for j, doc := range t.Documents {
				if doc < len(tweetIDs) {
					c.TweetIDs[j] = tweetIDs[doc]
				}
			}
		}
		clusters[i] = c
	}

	if err := InsertRun(d, run, clusters); err != nil {
		return "", err
	}
	return id, nil
}
