package cli

import (
	"fmt"

	"github.com/semtweets/cli/cmd/semtweets/cli/corpus"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the stored tweets to a corpus file",
		Long: `Write the stored tweets as JSON lines, oldest first. A path ending in
.zst is zstd-compressed. The file can be loaded again with 'import' or
clustered directly with 'cluster --corpus'.`,
		Example: `  semtweets export tweets.jsonl.zst
  semtweets export --source collector collected.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			_, d, err := preamble(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			rows, err := db.QueryTweets(d, db.TweetPageOptions{Source: source})
			if err != nil {
				return err
			}
			records := make([]corpus.Record, len(rows))
			for i, r := range rows {
				records[i] = corpus.Record{ID: r.ID, Text: r.Text, Author: r.Author, CreatedAt: r.CreatedAt}
			}
			if err := corpus.Export(args[0], records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d tweets to %s\n", len(records), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Only tweets from this source (import, collector)")
	return cmd
}
