package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sysbenchkit/internal/chart"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

var chartCmd = &cobra.Command{
	Use:   "chart [step]",
	Short: "Render a metric over recorded runs as a line chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := workload.Lookup(args[0])
		if err != nil {
			return err
		}
		metric, _ := cmd.Flags().GetString("metric")
		output, _ := cmd.Flags().GetString("output")
		if metric == "" {
			metric = step.HeadlineMetric
		}
		if output == "" {
			output = step.ID + ".png"
		}

		d, cleanup, err := openDB()
		if err != nil {
			return err
		}
		defer cleanup()

		points, err := d.MetricSeries(step.ID, metric)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			return fmt.Errorf("no successful %s runs with %s recorded", step.ID, metric)
		}

		s := chart.Series{
			Title:  fmt.Sprintf("%s over %d runs", step.Name, len(points)),
			YLabel: metric,
		}
		for _, p := range points {
			s.Values = append(s.Values, p.Value)
			s.Labels = append(s.Labels, shortID(p.RunID))
		}
		if err := chart.Render(s, output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d runs)\n", output, len(points))
		return nil
	},
}

func init() {
	chartCmd.Flags().String("metric", "", "Dotted results path (default: the step's headline metric)")
	chartCmd.Flags().StringP("output", "o", "", "Image path; format follows the extension (default: <step>.png)")
}
