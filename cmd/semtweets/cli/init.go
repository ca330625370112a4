package cli

import (
	"fmt"
	"os"

	"github.com/semtweets/cli/cmd/semtweets/cli/config"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var writeConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the local tweet store",
		Long: `Create the data directory and the DuckDB store inside it.

Creates:
  .semtweets/           Data directory (override with --data-dir)
  .semtweets/store.db   Tweets, clustering runs and their clusters

With --write-config, also writes semtweets.yaml with the default settings
so they can be edited.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadSettings(cmd)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}

			if writeConfig {
				if err := writeDefaultConfig(cmd, cfg); err != nil {
					return err
				}
			}

			if _, err := os.Stat(db.Path(cfg.DataDir)); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "semtweets is already initialized. Run 'semtweets clean' first to reinitialize.")
				return nil
			}

			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", cfg.DataDir, err)
			}

			d, err := db.Open(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("create store: %w", err)
			}
			defer d.Close()
			if err := db.InitSchema(d); err != nil {
				return fmt.Errorf("init store schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "semtweets initialized.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeConfig, "write-config", false, "Also write semtweets.yaml with the effective settings")
	return cmd
}

func writeDefaultConfig(cmd *cobra.Command, cfg *config.Config) error {
	path, _ := cmd.Flags().GetString(flagConfig)
	if path == "" {
		path = config.DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s exists, leaving it unchanged\n", path)
		return nil
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}
