package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const gettingStarted = `

Getting Started:
  semtweets init                  Create the local tweet store
  semtweets import tweets.json    Load a corpus file into the store
  semtweets collect               Accept tweets over HTTP
  semtweets cluster               Group stored tweets into topics
  semtweets runs                  List previous clustering runs
`

// NewRootCmd returns the root command for the semtweets CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "semtweets",
		Short:         "semtweets groups short texts into topics",
		Long:          "semtweets builds a latent semantic space over a tweet corpus and clusters the tweets into topics by cosine K-Means." + gettingStarted,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String(flagConfig, "", "Config file (default ./semtweets.yaml)")
	cmd.PersistentFlags().String(flagDataDir, "", "Data directory holding the store (default .semtweets)")
	cmd.PersistentFlags().Bool(flagDebug, false, "Verbose diagnostic logging")

	cmd.SetVersionTemplate("semtweets {{.Version}}\n")
	cmd.Version = Version

	// Command groups.
	coreGroup := &cobra.Group{ID: "core", Title: "Core Commands:"}
	workflowGroup := &cobra.Group{ID: "workflow", Title: "Workflow Commands:"}
	advancedGroup := &cobra.Group{ID: "advanced", Title: "Advanced Commands:"}
	cmd.AddGroup(coreGroup, workflowGroup, advancedGroup)

	initCmd := newInitCmd()
	initCmd.GroupID = "core"
	cleanCmd := newCleanCmd()
	cleanCmd.GroupID = "core"
	versionCmd := newVersionCmd()
	versionCmd.GroupID = "core"

	importCmd := newImportCmd()
	importCmd.GroupID = "workflow"
	collectCmd := newCollectCmd()
	collectCmd.GroupID = "workflow"
	clusterCmd := newClusterCmd()
	clusterCmd.GroupID = "workflow"
	runsCmd := newRunsCmd()
	runsCmd.GroupID = "workflow"

	queryCmd := newQueryCmd()
	queryCmd.GroupID = "advanced"
	exportCmd := newExportCmd()
	exportCmd.GroupID = "advanced"

	cmd.AddCommand(initCmd, cleanCmd, versionCmd)
	cmd.AddCommand(importCmd, collectCmd, clusterCmd, runsCmd)
	cmd.AddCommand(queryCmd, exportCmd)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "semtweets", Version)
			return nil
		},
	}
}

// Run executes the root command and exits with the appropriate code.
func Run() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !IsSilentError(err) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		}
		os.Exit(1)
	}
}
