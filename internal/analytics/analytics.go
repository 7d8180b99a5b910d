package analytics

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/lucasnoah/sysbenchkit/internal/db"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

// Stats aggregates one metric across repeated runs. Min, Max, Mean and
// StdDev are computed after discarding outliers; Median and P95 use every
// value.
type Stats struct {
	Metric   string    `json:"metric" yaml:"metric"`
	Count    int       `json:"count" yaml:"count"`
	Min      float64   `json:"min" yaml:"min"`
	Max      float64   `json:"max" yaml:"max"`
	Mean     float64   `json:"mean" yaml:"mean"`
	StdDev   float64   `json:"stddev" yaml:"stddev"`
	Median   float64   `json:"median" yaml:"median"`
	P95      float64   `json:"p95" yaml:"p95"`
	Outliers int       `json:"outliers" yaml:"outliers"`
	Values   []float64 `json:"values" yaml:"values"`
}

// Summarize computes Stats over values. Values outside 1.5 IQR of the
// quartiles count as outliers.
func Summarize(values []float64) Stats {
	st := Stats{Count: len(values), Values: values}
	if len(values) == 0 {
		return st
	}

	all := stats.Sample{Xs: values}
	q1, q3 := all.Quantile(0.25), all.Quantile(0.75)
	lo, hi := q1-1.5*(q3-q1), q3+1.5*(q3-q1)
	var kept []float64
	for _, v := range values {
		if lo <= v && v <= hi {
			kept = append(kept, v)
		}
	}
	st.Outliers = len(values) - len(kept)

	st.Min, st.Max = stats.Bounds(kept)
	st.Mean = stats.Mean(kept)
	if len(kept) > 1 {
		st.StdDev = stats.StdDev(kept)
	}
	st.Median = all.Quantile(0.5)
	st.P95 = all.Quantile(0.95)
	return st
}

// Spread returns the largest relative deviation of Min or Max from Mean.
func (s Stats) Spread() float64 {
	if s.Mean == 0 {
		return 0
	}
	return math.Max(s.Max/s.Mean-1, 1-s.Min/s.Mean)
}

// Format renders s on one line, e.g. "2639.51 ±2% (n=5)".
func (s Stats) Format() string {
	if s.Count == 0 {
		return "no data"
	}
	out := fmt.Sprintf("%.2f ±%.0f%% (n=%d", s.Mean, s.Spread()*100, s.Count)
	if s.Outliers > 0 {
		out += fmt.Sprintf(", %d outliers", s.Outliers)
	}
	return out + ")"
}

// ResultValues extracts metric from every successful result.
func ResultValues(results []*workload.StepResult, metric string) []float64 {
	var values []float64
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		v, ok := r.Results.Lookup(metric)
		if !ok {
			continue
		}
		if f, ok := v.(float64); ok {
			values = append(values, f)
		}
	}
	return values
}

// SummarizeResults aggregates the headline metric of step over results.
func SummarizeResults(step *workload.Step, results []*workload.StepResult) Stats {
	st := Summarize(ResultValues(results, step.HeadlineMetric))
	st.Metric = step.HeadlineMetric
	return st
}

// QueryStats aggregates metric over the stored successful runs of step.
// An empty metric selects the step's headline metric.
func QueryStats(database *db.DB, step *workload.Step, metric string) (Stats, error) {
	if metric == "" {
		metric = step.HeadlineMetric
	}
	points, err := database.MetricSeries(step.ID, metric)
	if err != nil {
		return Stats{}, fmt.Errorf("query %s %s: %w", step.ID, metric, err)
	}
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	st := Summarize(values)
	st.Metric = metric
	return st, nil
}
