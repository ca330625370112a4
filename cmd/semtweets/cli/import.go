package cli

import (
	"database/sql"
	"fmt"

	"github.com/semtweets/cli/cmd/semtweets/cli/corpus"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/semtweets/cli/cmd/semtweets/cli/metrics"
	"github.com/spf13/cobra"
)

const importSource = "import"

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Load corpus files into the store",
		Long: `Append the tweets of one or more corpus files to the store.

Accepted files:
  .json            JSON array of tweet objects, or one object per line
  .jsonl .ndjson   One tweet object per line
  .txt             One tweet per line
  any of them with a .zst suffix (zstd-compressed)

Tweet objects need a "text" (or "full_text") field; "id", "created_at" and
"user.screen_name" are kept when present. Tweets whose text is already in
the store are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			_, d, err := preamble(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			return runImport(cmd, d, args)
		},
	}
}

func runImport(cmd *cobra.Command, d *sql.DB, files []string) error {
	w := cmd.ErrOrStderr()
	in := db.NewIngester(d, importSource)

	var inserted, skipped int
	for _, f := range files {
		records, err := corpus.Load(f)
		if err != nil {
			return err
		}
		fileInserted := 0
		for _, rec := range records {
			id, err := in.Add(db.Tweet{Text: rec.Text, Author: rec.Author, CreatedAt: rec.CreatedAt})
			if err != nil {
				return fmt.Errorf("import %s: %w", f, err)
			}
			metrics.ObserveIngest(importSource, id != "")
			if id == "" {
				skipped++
				continue
			}
			fileInserted++
		}
		inserted += fileInserted
		fmt.Fprintf(w, "%s: %d tweets read, %d new\n", f, len(records), fileInserted)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d tweets (%d duplicates skipped)\n", inserted, skipped)
	return nil
}
