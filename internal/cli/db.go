package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/artifact"
	"github.com/lucasnoah/sysbenchkit/internal/config"
	"github.com/lucasnoah/sysbenchkit/internal/db"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Run-history database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s (%s) is up to date.\n", cfg.Database.DSN, cfg.Database.Driver)
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all run history and re-create the schema (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to reset %s without --yes", cfg.Database.DSN)
		}
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return fmt.Errorf("reset database: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("yes", false, "Confirm the reset")

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}

// openDB opens and migrates the configured DB, returning it with a cleanup func.
func openDB() (*db.DB, func(), error) {
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid config: %s", errs[0])
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

func artifactStore() *artifact.Store {
	if cfg.Artifacts.Disable || cfg.Artifacts.Dir == "" {
		return nil
	}
	return artifact.NewStore(cfg.Artifacts.Dir)
}
