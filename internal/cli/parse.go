package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse captured sysbench output into summary and results records",
	Long: `Parse a sysbench text report from a file or stdin. Without --step the
raw summary and results records are printed. With --step the records are
validated against that workload's schema and the typed output is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, _ := cmd.Flags().GetString("step")
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "json", "yaml"); err != nil {
			return err
		}

		raw, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if stepID == "" {
			p := &report.Parser{Logger: slog.Default()}
			summary, results := p.Parse(raw)
			return writeStructured(w, format, struct {
				Summary *report.Record `json:"summary" yaml:"summary"`
				Results *report.Record `json:"results" yaml:"results"`
			}{summary, results})
		}

		step, err := workload.Lookup(stepID)
		if err != nil {
			return err
		}
		threads, _ := cmd.Flags().GetInt("threads")
		res := newRunner().ParseOutput(step, workload.Params{Operation: step.DefaultOperation, Threads: threads}, raw)
		if err := writeStructured(w, format, newRunView("", res)); err != nil {
			return err
		}
		if !res.Succeeded() {
			return fmt.Errorf("%s", res.Err.Error)
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func init() {
	parseCmd.Flags().String("step", "", "Validate against a workload step (sysbenchcpu, sysbenchmemory)")
	parseCmd.Flags().IntP("threads", "t", 0, "Thread count recorded with the parsed output")
	parseCmd.Flags().String("format", "json", "Output format: json or yaml")
}
