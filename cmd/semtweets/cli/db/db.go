// Package db stores the tweet corpus and clustering run results in DuckDB.
package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// FileName is the store file inside the data directory.
const FileName = "store.db"

// Path returns the store path for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Open opens (or creates) the store in dataDir.
func Open(dataDir string) (*sql.DB, error) {
	return open(Path(dataDir))
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}
	return db, nil
}

// nullIfEmpty returns nil if s is empty, otherwise s.
// Used to store NULL in VARCHAR columns instead of empty strings.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nullIfZero returns nil for the zero time, otherwise t in UTC.
func nullIfZero(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// TweetRow is a row of the tweets table.
type TweetRow struct {
	ID         string
	Text       string
	Hash       string
	Author     string
	Source     string
	CreatedAt  time.Time // zero when unknown
	ReceivedAt time.Time
}

// TweetExistsByHash reports whether a tweet with the given content hash is
// already stored. Used for deduplication.
func TweetExistsByHash(d *sql.DB, hash string) (bool, error) {
	var count int
	err := d.QueryRow("SELECT count(*) FROM tweets WHERE text_hash = $1", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check tweet hash: %w", err)
	}
	return count > 0, nil
}

// InsertTweet inserts a tweet row.
func InsertTweet(d *sql.DB, r TweetRow) error {
	_, err := d.Exec(
		`INSERT INTO tweets (id, text, text_hash, author, source, created_at, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.Text, r.Hash, nullIfEmpty(r.Author), r.Source, nullIfZero(r.CreatedAt), r.ReceivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert tweet: %w", err)
	}
	return nil
}

// CountTweets returns the number of stored tweets.
func CountTweets(d *sql.DB) (int, error) {
	var n int
	if err := d.QueryRow("SELECT count(*) FROM tweets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count tweets: %w", err)
	}
	return n, nil
}

// TweetPageOptions controls pagination for QueryTweets.
type TweetPageOptions struct {
	Offset int
	Limit  int    // 0 = no limit
	Source string // "" = all sources
}

// QueryTweets returns tweets in arrival order (received_at, then id).
func QueryTweets(d *sql.DB, opts TweetPageOptions) ([]TweetRow, error) {
	where := ""
	var args []interface{}
	if opts.Source != "" {
		where = " WHERE source = $1"
		args = append(args, opts.Source)
	}
	q := `SELECT id, text, text_hash, COALESCE(author, ''), source, created_at, received_at
		FROM tweets` + where + ` ORDER BY received_at, id`
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := d.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var result []TweetRow
	for rows.Next() {
		var r TweetRow
		var created sql.NullTime
		if err := rows.Scan(&r.ID, &r.Text, &r.Hash, &r.Author, &r.Source, &created, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		if created.Valid {
			r.CreatedAt = created.Time
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RunRow is a row of the runs table.
type RunRow struct {
	ID            string
	CreatedAt     time.Time
	Seed          int64
	LatentDims    int
	Clusters      int
	MaxIterations int
	Iterations    int
	Converged     bool
	Documents     int
	Terms         int
	ElapsedMs     int64
	Source        string
}

// ClusterRow is one stored cluster of a run.
type ClusterRow struct {
	Rank     int
	Tag      int
	Keywords []string
	Centroid []float64
	// Members are (document index, tweet id) pairs in cluster order; the
	// tweet id is empty when the corpus came from a file.
	DocIndexes []int
	TweetIDs   []string
}

// InsertRun stores a run and its clusters in one transaction.
func InsertRun(d *sql.DB, run RunRow, clusters []ClusterRow) error {
	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(
		`INSERT INTO runs (id, created_at, seed, latent_dims, clusters, max_iterations,
		                   iterations, converged, documents, terms, elapsed_ms, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.CreatedAt.UTC(), run.Seed, run.LatentDims, run.Clusters, run.MaxIterations,
		run.Iterations, run.Converged, run.Documents, run.Terms, run.ElapsedMs, run.Source,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range clusters {
		// Inline the array literal because the database/sql driver cannot
		// bind a string to a DOUBLE[] column, even with a cast.
		query := fmt.Sprintf(
			`INSERT INTO run_clusters (run_id, rank, tag, size, keywords, centroid)
			 VALUES ($1, $2, $3, $4, $5, %s::DOUBLE[])`,
			float64SliceToDuckDB(c.Centroid),
		)
		if _, err := tx.Exec(query, run.ID, c.Rank, c.Tag, len(c.DocIndexes), nullIfEmpty(strings.Join(c.Keywords, ","))); err != nil {
			return fmt.Errorf("insert cluster %d of run %s: %w", c.Rank, run.ID, err)
		}
		for pos, docIdx := range c.DocIndexes {
			tweetID := ""
			if pos < len(c.TweetIDs) {
				tweetID = c.TweetIDs[pos]
			}
			if _, err := tx.Exec(
				`INSERT INTO run_members (run_id, rank, position, doc_index, tweet_id)
				 VALUES ($1, $2, $3, $4, $5)`,
				run.ID, c.Rank, pos, docIdx, nullIfEmpty(tweetID),
			); err != nil {
				return fmt.Errorf("insert member of run %s: %w", run.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// QueryRuns returns the most recent runs, newest first.
func QueryRuns(d *sql.DB, limit int) ([]RunRow, error) {
	rows, err := d.Query(
		`SELECT id, created_at, seed, latent_dims, clusters, max_iterations,
		        iterations, converged, documents, terms, elapsed_ms, source
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Seed, &r.LatentDims, &r.Clusters, &r.MaxIterations,
			&r.Iterations, &r.Converged, &r.Documents, &r.Terms, &r.ElapsedMs, &r.Source); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// QueryClusterSizes returns the member count of each cluster of a run, by rank.
func QueryClusterSizes(d *sql.DB, runID string) ([]int, error) {
	rows, err := d.Query("SELECT size FROM run_clusters WHERE run_id = $1 ORDER BY rank", runID)
	if err != nil {
		return nil, fmt.Errorf("query cluster sizes: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var sizes []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan cluster size: %w", err)
		}
		sizes = append(sizes, n)
	}
	return sizes, rows.Err()
}

// float64SliceToDuckDB serializes a float64 slice as a DuckDB list literal
// (e.g. "[0.1, 0.2, 0.3]") because the database/sql driver does not support
// passing Go slices for DOUBLE[] columns.
func float64SliceToDuckDB(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%g", f)
	}
	b.WriteByte(']')
	return b.String()
}
