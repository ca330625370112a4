package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run raw SQL against the store",
		Long: `Run a SELECT statement against the store. Output is one JSON object per row.

STORE SCHEMA (.semtweets/store.db):

  tweets        id, text, text_hash, author, source, created_at, received_at
  runs          id, created_at, seed, latent_dims, clusters, max_iterations,
                iterations, converged, documents, terms, elapsed_ms, source
  run_clusters  run_id, rank, tag, size, keywords, centroid
  run_members   run_id, rank, position, doc_index, tweet_id
  meta          key, value`,
		Example: `  # Latest tweets
  semtweets query "SELECT id, author, text FROM tweets ORDER BY received_at DESC LIMIT 5"

  # Largest topic of the latest run with its tweets
  semtweets query "SELECT t.text FROM run_members m JOIN tweets t ON t.id = m.tweet_id WHERE m.run_id = (SELECT id FROM runs ORDER BY created_at DESC LIMIT 1) AND m.rank = 0"

  # Tweets per author
  semtweets query "SELECT author, count(*) AS n FROM tweets GROUP BY author ORDER BY n DESC LIMIT 10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			_, d, err := preamble(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			return runQuery(cmd, d, args[0])
		},
	}
}

// isReadOnly accepts SELECT and WITH ... SELECT statements.
func isReadOnly(query string) bool {
	normalized := strings.TrimSpace(strings.ToUpper(query))
	return strings.HasPrefix(normalized, "SELECT") || strings.HasPrefix(normalized, "WITH")
}

func runQuery(cmd *cobra.Command, d *sql.DB, query string) error {
	if !isReadOnly(query) {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	rows, err := d.Query(query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	out := cmd.OutOrStdout()
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			v := values[i]
			// Convert []byte to string for JSON output.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}

		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		fmt.Fprintln(out, string(data))
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}
