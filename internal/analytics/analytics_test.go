package analytics

import (
	"math"
	"strings"
	"testing"

	"github.com/lucasnoah/sysbenchkit/internal/db"
	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarize_Empty(t *testing.T) {
	st := Summarize(nil)
	if st.Count != 0 {
		t.Errorf("count = %d, want 0", st.Count)
	}
	if st.Format() != "no data" {
		t.Errorf("format = %q", st.Format())
	}
}

func TestSummarize_Single(t *testing.T) {
	st := Summarize([]float64{42})
	if st.Count != 1 || st.Min != 42 || st.Max != 42 || st.Mean != 42 {
		t.Errorf("stats = %+v", st)
	}
	if st.StdDev != 0 {
		t.Errorf("stddev = %v, want 0", st.StdDev)
	}
	if st.Median != 42 {
		t.Errorf("median = %v, want 42", st.Median)
	}
}

func TestSummarize_Basic(t *testing.T) {
	st := Summarize([]float64{1, 2, 3, 4, 5})
	if st.Count != 5 {
		t.Errorf("count = %d, want 5", st.Count)
	}
	if st.Outliers != 0 {
		t.Errorf("outliers = %d, want 0", st.Outliers)
	}
	if st.Min != 1 || st.Max != 5 {
		t.Errorf("bounds = %v..%v, want 1..5", st.Min, st.Max)
	}
	if !approx(st.Mean, 3) {
		t.Errorf("mean = %v, want 3", st.Mean)
	}
	if !approx(st.StdDev, math.Sqrt(2.5)) {
		t.Errorf("stddev = %v, want %v", st.StdDev, math.Sqrt(2.5))
	}
	if !approx(st.Median, 3) {
		t.Errorf("median = %v, want 3", st.Median)
	}
	if st.P95 < 4 || st.P95 > 5 {
		t.Errorf("p95 = %v, want within [4, 5]", st.P95)
	}
}

func TestSummarize_DiscardsOutliers(t *testing.T) {
	st := Summarize([]float64{10, 11, 10, 12, 11, 10, 500})
	if st.Outliers != 1 {
		t.Fatalf("outliers = %d, want 1", st.Outliers)
	}
	if st.Max != 12 {
		t.Errorf("max = %v, want 12 after discarding 500", st.Max)
	}
	if st.Count != 7 {
		t.Errorf("count = %d, want 7", st.Count)
	}
	if !strings.Contains(st.Format(), "1 outliers") {
		t.Errorf("format = %q, want outlier note", st.Format())
	}
}

func TestStats_Format(t *testing.T) {
	st := Summarize([]float64{98, 100, 102})
	if got := st.Format(); got != "100.00 ±2% (n=3)" {
		t.Errorf("format = %q", got)
	}
}

func result(v float64) *workload.StepResult {
	res := report.NewRecord()
	sec := report.NewRecord()
	sec.Set("eventspersecond", v)
	res.Set("CPUspeed", sec)
	return &workload.StepResult{Step: workload.CPUStep.ID, OutputID: workload.OutputSuccess, Results: res}
}

func TestSummarizeResults_SkipsFailures(t *testing.T) {
	results := []*workload.StepResult{
		result(100),
		{Step: workload.CPUStep.ID, OutputID: workload.OutputError, Err: &workload.WorkloadError{Error: "boom"}},
		result(200),
	}
	st := SummarizeResults(workload.CPUStep, results)
	if st.Metric != "CPUspeed.eventspersecond" {
		t.Errorf("metric = %q", st.Metric)
	}
	if st.Count != 2 {
		t.Errorf("count = %d, want 2", st.Count)
	}
	if !approx(st.Mean, 150) {
		t.Errorf("mean = %v, want 150", st.Mean)
	}
}

func TestQueryStats(t *testing.T) {
	d := testDB(t)
	for _, v := range []string{"100", "110", "120"} {
		if _, err := d.LogRun(&db.Run{
			Step: workload.MemoryStep.ID, Operation: "memory", Threads: 1, Status: "success",
			Results: `{"transferred_MiBpersec":` + v + `}`,
		}); err != nil {
			t.Fatalf("log run: %v", err)
		}
	}

	st, err := QueryStats(d, workload.MemoryStep, "")
	if err != nil {
		t.Fatalf("QueryStats: %v", err)
	}
	if st.Metric != report.TransferredMiBPerSec {
		t.Errorf("metric = %q", st.Metric)
	}
	if st.Count != 3 || !approx(st.Mean, 110) {
		t.Errorf("stats = %+v", st)
	}

	none, err := QueryStats(d, workload.CPUStep, "")
	if err != nil {
		t.Fatalf("QueryStats cpu: %v", err)
	}
	if none.Count != 0 {
		t.Errorf("cpu count = %d, want 0", none.Count)
	}
}
