package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/config"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	logLevel   string

	// cfg is resolved once per invocation in PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sysbenchkit",
	Short: "sysbenchkit: run sysbench workloads and keep their results",
	Long: `sysbenchkit runs sysbench CPU and memory workloads, parses the text
report into a summary and a results record, and validates both against the
workload's schema.

Runs are stored in a SQLite (or Postgres) history database and their raw
output is kept under ~/.sysbenchkit/runs/ for later inspection.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		cfg = c
		return setupLogging(cmd.ErrOrStderr(), c.Log)
	},
}

// ExecuteContext runs the root command with ctx, which run commands pass
// down to the sysbench process.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	return config.LoadDefault()
}

func setupLogging(w io.Writer, lc config.Log) error {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch lc.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return fmt.Errorf("unrecognized log format %q", lc.Format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (default: ./sysbenchkit.yaml or ~/.sysbenchkit/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
