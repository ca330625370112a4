package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the local tweet store",
		Long: `Remove the data directory with the store, every collected tweet and
every stored run. The config file and reports are left alone.

Run 'semtweets init' to reinitialize after cleaning.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadSettings(cmd)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}

			if err := runClean(cfg.DataDir); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "semtweets cleaned. Run `semtweets init` to reinitialize.")
			return nil
		},
	}
}

// runClean removes the data directory. Idempotent.
func runClean(dataDir string) error {
	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("remove %s: %w", dataDir, err)
	}
	return nil
}
