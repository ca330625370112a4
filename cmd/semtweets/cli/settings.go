package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/semtweets/cli/cmd/semtweets/cli/config"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	flagConfig  = "config"
	flagDataDir = "data-dir"
	flagDebug   = "debug"
)

// loadSettings reads the config file and applies the persistent flag
// overrides. Flags win over environment, environment over file.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed(flagDataDir) {
		cfg.DataDir, _ = cmd.Flags().GetString(flagDataDir)
	}
	if cmd.Flags().Changed(flagDebug) {
		cfg.Debug, _ = cmd.Flags().GetBool(flagDebug)
	}
	return cfg, nil
}

// newLogger returns a development logger in debug mode and a warn-level
// production logger otherwise.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// EnsureInitDone checks that the store exists in dataDir.
func EnsureInitDone(dataDir string) error {
	if _, err := os.Stat(db.Path(dataDir)); err != nil {
		return fmt.Errorf("semtweets not initialized in %s. Run 'semtweets init' first", dataDir)
	}
	return nil
}

// openStore opens an initialized store and verifies its schema version.
func openStore(dataDir string) (*sql.DB, error) {
	if err := EnsureInitDone(dataDir); err != nil {
		return nil, err
	}
	d, err := db.Open(dataDir)
	if err != nil {
		return nil, err
	}
	if err := db.CheckSchemaVersion(d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// preamble runs the shared start of every store command: settings, then
// the store. Errors are printed and returned silent.
func preamble(cmd *cobra.Command) (*config.Config, *sql.DB, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return nil, nil, NewSilentError(err)
	}
	d, err := openStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return nil, nil, NewSilentError(err)
	}
	return cfg, d, nil
}
