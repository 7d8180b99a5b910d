package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/analytics"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

// newCommandRunner is replaced in tests.
var newCommandRunner = func() workload.CommandRunner {
	return &workload.ExecRunner{}
}

func newRunner() *workload.Runner {
	return workload.NewRunner(newCommandRunner(), workload.Options{
		Binary:    cfg.Sysbench.Binary,
		ExtraArgs: cfg.Sysbench.ExtraArgs,
		Timeout:   cfg.TimeoutDuration(10 * time.Minute),
		Logger:    slog.Default(),
	})
}

var runCmd = &cobra.Command{
	Use:   "run [step]",
	Short: "Run a sysbench workload and record its results",
	Long: `Run a sysbench workload step (sysbenchcpu/cpu or sysbenchmemory/memory),
parse its report and validate the records. Each run is stored in the history
database and its raw output saved as an artifact unless --no-store is given.

The command exits non-zero if any run produced the "error" output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := workload.Lookup(args[0])
		if err != nil {
			return err
		}
		threads, _ := cmd.Flags().GetInt("threads")
		operation, _ := cmd.Flags().GetString("operation")
		repeat, _ := cmd.Flags().GetInt("repeat")
		format, _ := cmd.Flags().GetString("format")
		noStore, _ := cmd.Flags().GetBool("no-store")

		if err := validateFormat(format, "text", "json", "yaml"); err != nil {
			return err
		}
		if threads == 0 {
			threads = cfg.Sysbench.DefaultThreads
		}
		params := workload.Params{Operation: operation, Threads: threads}

		results, runErr := newRunner().Repeat(cmd.Context(), step, params, repeat)
		if len(results) == 0 && runErr != nil {
			return runErr
		}

		ids := make([]string, len(results))
		if !noStore {
			if err := storeResults(results, ids); err != nil {
				return err
			}
		}

		failed := 0
		views := make([]runView, len(results))
		for i, res := range results {
			views[i] = newRunView(ids[i], res)
			if !res.Succeeded() {
				failed++
			}
		}

		w := cmd.OutOrStdout()
		switch format {
		case "text":
			for i, res := range results {
				writeRunLine(w, step, i+1, len(results), ids[i], res)
			}
			if len(results) > 1 {
				st := analytics.SummarizeResults(step, results)
				fmt.Fprintf(w, "%s: %s\n", st.Metric, st.Format())
			}
		default:
			var v any = views
			if len(views) == 1 {
				v = views[0]
			}
			if err := writeStructured(w, format, v); err != nil {
				return err
			}
		}

		if runErr != nil {
			return runErr
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d %s run(s) failed", failed, len(results), step.ID)
		}
		return nil
	},
}

func storeResults(results []*workload.StepResult, ids []string) error {
	d, cleanup, err := openDB()
	if err != nil {
		return err
	}
	defer cleanup()
	store := artifactStore()

	for i, res := range results {
		row, err := toRun(res)
		if err != nil {
			return err
		}
		if ids[i], err = d.LogRun(row); err != nil {
			return err
		}
		if store == nil {
			continue
		}
		if err := store.Save(ids[i], res); err != nil {
			slog.Warn("could not save run artifacts", "run", ids[i], "error", err)
		}
	}
	return nil
}

func writeRunLine(w io.Writer, step *workload.Step, n, total int, id string, res *workload.StepResult) {
	prefix := fmt.Sprintf("[%s] %s run %d/%d", res.OutputID, step.ID, n, total)
	if id != "" {
		prefix += " " + shortID(id)
	}
	if res.Succeeded() {
		fmt.Fprintf(w, "%s: %s=%s (%dms)\n", prefix, step.HeadlineMetric, metricString(res.Results, step.HeadlineMetric), res.DurationMs)
		return
	}
	msg := res.Err.Error
	if first, _, found := strings.Cut(msg, "\n"); found {
		msg = first
	}
	fmt.Fprintf(w, "%s: %s\n", prefix, msg)
}

func init() {
	runCmd.Flags().IntP("threads", "t", 0, "Number of sysbench threads (default from config)")
	runCmd.Flags().String("operation", "", "sysbench test name (default: the step's workload)")
	runCmd.Flags().IntP("repeat", "n", 1, "Run the workload this many times")
	runCmd.Flags().String("format", "text", "Output format: text, json or yaml")
	runCmd.Flags().Bool("no-store", false, "Do not record the run in history or save artifacts")
}
