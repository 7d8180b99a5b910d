package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/artifact"
	"github.com/lucasnoah/sysbenchkit/internal/db"
	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, _ := cmd.Flags().GetString("step")
		status, _ := cmd.Flags().GetString("status")
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "text", "json", "yaml"); err != nil {
			return err
		}

		filter := db.RunFilter{Status: status, Since: since}
		if stepID != "" {
			step, err := workload.Lookup(stepID)
			if err != nil {
				return err
			}
			filter.Step = step.ID
		}

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := d.ListRuns(filter)
		if err != nil {
			return err
		}
		if limit > 0 && len(runs) > limit {
			runs = runs[len(runs)-limit:]
		}

		w := cmd.OutOrStdout()
		if format != "text" {
			entries := make([]historyEntry, len(runs))
			for i, r := range runs {
				entries[i] = newHistoryEntry(r)
			}
			return writeStructured(w, format, entries)
		}

		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs found.")
			return nil
		}
		fmt.Fprintf(w, "%-8s  %-14s  %-7s  %-7s  %-9s  %-16s  %s\n", "ID", "STEP", "STATUS", "THREADS", "DURATION", "METRIC", "CREATED")
		fmt.Fprintf(w, "%-8s  %-14s  %-7s  %-7s  %-9s  %-16s  %s\n",
			strings.Repeat("-", 8),
			strings.Repeat("-", 14),
			strings.Repeat("-", 7),
			strings.Repeat("-", 7),
			strings.Repeat("-", 9),
			strings.Repeat("-", 16),
			strings.Repeat("-", 7))
		for _, r := range runs {
			e := newHistoryEntry(r)
			fmt.Fprintf(w, "%-8s  %-14s  %-7s  %-7d  %-9s  %-16s  %s\n",
				shortID(r.ID), r.Step, r.Status, r.Threads, fmt.Sprintf("%dms", r.DurationMs), e.Metric, r.CreatedAt)
		}
		return nil
	},
}

// historyEntry is one history row with the step's headline metric resolved.
type historyEntry struct {
	ID         string `json:"id" yaml:"id"`
	Step       string `json:"step" yaml:"step"`
	Operation  string `json:"operation" yaml:"operation"`
	Threads    int    `json:"threads" yaml:"threads"`
	Status     string `json:"status" yaml:"status"`
	DurationMs int    `json:"duration_ms" yaml:"duration_ms"`
	Metric     string `json:"metric" yaml:"metric"`
	CreatedAt  string `json:"created_at" yaml:"created_at"`
}

func newHistoryEntry(r db.Run) historyEntry {
	e := historyEntry{
		ID:         r.ID,
		Step:       r.Step,
		Operation:  r.Operation,
		Threads:    r.Threads,
		Status:     r.Status,
		DurationMs: r.DurationMs,
		Metric:     "-",
		CreatedAt:  r.CreatedAt,
	}
	step, err := workload.Lookup(r.Step)
	if err != nil {
		return e
	}
	if rec, err := decodeRecord(r.Results); err == nil && rec != nil {
		e.Metric = metricString(rec, step.HeadlineMetric)
	}
	return e
}

var showCmd = &cobra.Command{
	Use:   "show [run-id|latest]",
	Short: "Show a recorded run with its summary and results",
	Long: `Show a recorded run. "latest" selects the most recent run, limited to
one step with --step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, _ := cmd.Flags().GetString("step")
		raw, _ := cmd.Flags().GetBool("raw")
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "yaml", "json"); err != nil {
			return err
		}

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		r, err := findRun(d, args[0], stepID)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if raw {
			store := artifactStore()
			if store == nil {
				return fmt.Errorf("artifacts are disabled")
			}
			a, err := store.Load(r.ID)
			if errors.Is(err, artifact.ErrNoArtifacts) {
				return fmt.Errorf("no raw output kept for run %s", r.ID)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(w, a.Output)
			return nil
		}

		detail := runDetail{
			ID:         r.ID,
			Step:       r.Step,
			Operation:  r.Operation,
			Threads:    r.Threads,
			Status:     r.Status,
			ExitCode:   r.ExitCode,
			DurationMs: r.DurationMs,
			CreatedAt:  r.CreatedAt,
			Error:      r.Error,
		}
		if detail.Summary, err = decodeRecord(r.Summary); err != nil {
			return err
		}
		if detail.Results, err = decodeRecord(r.Results); err != nil {
			return err
		}
		return writeStructured(w, format, detail)
	},
}

// findRun resolves a run ID, or "latest" optionally narrowed to stepID.
func findRun(d *db.DB, id, stepID string) (*db.Run, error) {
	if id != "latest" {
		if stepID != "" {
			return nil, fmt.Errorf("--step only applies to \"latest\"")
		}
		return d.GetRun(id)
	}
	if stepID != "" {
		step, err := workload.Lookup(stepID)
		if err != nil {
			return nil, err
		}
		stepID = step.ID
	}
	return d.LatestRun(stepID)
}

var deleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a recorded run and its stored artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		id := args[0]
		if err := d.DeleteRun(id); err != nil {
			return err
		}
		if store := artifactStore(); store != nil {
			if err := store.Remove(id); err != nil {
				return fmt.Errorf("remove artifacts of %s: %w", id, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s.\n", id)
		return nil
	},
}

type runDetail struct {
	ID         string         `json:"id" yaml:"id"`
	Step       string         `json:"step" yaml:"step"`
	Operation  string         `json:"operation" yaml:"operation"`
	Threads    int            `json:"threads" yaml:"threads"`
	Status     string         `json:"status" yaml:"status"`
	ExitCode   int            `json:"exit_code" yaml:"exit_code"`
	DurationMs int            `json:"duration_ms" yaml:"duration_ms"`
	CreatedAt  string         `json:"created_at" yaml:"created_at"`
	Summary    *report.Record `json:"summary,omitempty" yaml:"summary,omitempty"`
	Results    *report.Record `json:"results,omitempty" yaml:"results,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func init() {
	historyCmd.Flags().String("step", "", "Filter by step")
	historyCmd.Flags().String("status", "", "Filter by status: success or error")
	historyCmd.Flags().String("since", "", "Only runs created at or after this RFC 3339 time")
	historyCmd.Flags().Int("limit", 20, "Show at most this many of the most recent runs (0 for all)")
	historyCmd.Flags().String("format", "text", "Output format: text, json or yaml")

	showCmd.Flags().String("step", "", "With \"latest\", only consider this step")
	showCmd.Flags().Bool("raw", false, "Print the raw sysbench output instead")
	showCmd.Flags().String("format", "yaml", "Output format: yaml or json")
}
