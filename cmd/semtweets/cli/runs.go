package cli

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent clustering runs",
		Long: `Show recent clustering runs from the store, newest first.

Each entry shows the run ID, timestamp, where the tweets came from, the
model sizes, the seed, how many passes K-Means took and the topic sizes.
Use 'semtweets query' against run_clusters and run_members for details.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			_, d, err := preamble(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			return runRuns(cmd, d, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max entries to show")
	return cmd
}

func runRuns(cmd *cobra.Command, d *sql.DB, limit int) error {
	runs, err := db.QueryRuns(d, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range runs {
		sizes, err := db.QueryClusterSizes(d, r.ID)
		if err != nil {
			return err
		}
		status := "converged"
		if !r.Converged {
			status = "limit reached"
		}

		fmt.Fprintf(out, "run %s\n", r.ID)
		fmt.Fprintf(out, "Date:       %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Source:     %s\n", r.Source)
		fmt.Fprintf(out, "Tweets:     %d (%d terms)\n", r.Documents, r.Terms)
		fmt.Fprintf(out, "Model:      %d dims, %d topics\n", r.LatentDims, r.Clusters)
		fmt.Fprintf(out, "Seed:       %d\n", r.Seed)
		fmt.Fprintf(out, "Iterations: %d of %d (%s)\n", r.Iterations, r.MaxIterations, status)
		fmt.Fprintf(out, "Sizes:      %s\n", formatSizes(sizes))
		fmt.Fprintln(out)
	}
	return nil
}

func formatSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}
