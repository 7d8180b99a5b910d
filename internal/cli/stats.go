package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/analytics"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

var statsCmd = &cobra.Command{
	Use:   "stats [step]",
	Short: "Aggregate a metric across recorded successful runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := workload.Lookup(args[0])
		if err != nil {
			return err
		}
		metric, _ := cmd.Flags().GetString("metric")
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format, "text", "json", "yaml"); err != nil {
			return err
		}

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		st, err := analytics.QueryStats(d, step, metric)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if format != "text" {
			return writeStructured(w, format, st)
		}
		fmt.Fprintf(w, "%s %s\n", step.ID, st.Metric)
		if st.Count == 0 {
			fmt.Fprintln(w, "  no successful runs recorded")
			return nil
		}
		fmt.Fprintf(w, "  runs:     %d (%d outliers)\n", st.Count, st.Outliers)
		fmt.Fprintf(w, "  mean:     %.4f\n", st.Mean)
		fmt.Fprintf(w, "  stddev:   %.4f\n", st.StdDev)
		fmt.Fprintf(w, "  min/max:  %.4f / %.4f\n", st.Min, st.Max)
		fmt.Fprintf(w, "  median:   %.4f\n", st.Median)
		fmt.Fprintf(w, "  p95:      %.4f\n", st.P95)
		return nil
	},
}

func init() {
	statsCmd.Flags().String("metric", "", "Dotted results path (default: the step's headline metric)")
	statsCmd.Flags().String("format", "text", "Output format: text, json or yaml")
}
