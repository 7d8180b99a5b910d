package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lucasnoah/sysbenchkit/internal/analytics"
	"github.com/lucasnoah/sysbenchkit/internal/chart"
	"github.com/lucasnoah/sysbenchkit/internal/db"
	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

// ---- view models ----

type DashboardData struct {
	Title string
	Steps []StepCard
	Runs  []RunRow
}

type StepCard struct {
	ID    string
	Name  string
	Stats analytics.Stats
}

type RunRow struct {
	ID         string `json:"id"`
	ShortID    string `json:"-"`
	Step       string `json:"step"`
	Operation  string `json:"operation"`
	Threads    int    `json:"threads"`
	Status     string `json:"status"`
	DurationMs int    `json:"duration_ms"`
	Metric     string `json:"metric"`
	CreatedAt  string `json:"created_at"`
}

type RunData struct {
	Title   string
	Run     *db.Run
	Summary []Field
	Results []Field
	Output  string
}

// Field is one flattened record entry; nested keys are joined with ".".
type Field struct {
	Key   string
	Value string
}

const recentRuns = 50

// relTime renders a created_at timestamp relative to now. Runs older than
// two days show their date instead.
func relTime(ts string) string {
	t, err := time.Parse(db.TimeFormat, ts)
	if err != nil {
		return ts
	}
	age := time.Since(t).Round(time.Minute)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return t.Local().Format("Jan 2 15:04")
}

func flatten(prefix string, rec *report.Record) []Field {
	var out []Field
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case *report.Record:
			out = append(out, flatten(key, val)...)
		case float64:
			out = append(out, Field{Key: key, Value: strconv.FormatFloat(val, 'f', -1, 64)})
		default:
			out = append(out, Field{Key: key, Value: fmt.Sprint(val)})
		}
	}
	return out
}

func decodeRecord(data string) *report.Record {
	if data == "" {
		return nil
	}
	rec := report.NewRecord()
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil
	}
	return rec
}

func newRunRow(r db.Run) RunRow {
	row := RunRow{
		ID:         r.ID,
		ShortID:    r.ID,
		Step:       r.Step,
		Operation:  r.Operation,
		Threads:    r.Threads,
		Status:     r.Status,
		DurationMs: r.DurationMs,
		Metric:     "-",
		CreatedAt:  r.CreatedAt,
	}
	if len(row.ShortID) > 8 {
		row.ShortID = row.ShortID[:8]
	}
	step, err := workload.Lookup(r.Step)
	if err != nil {
		return row
	}
	if v, ok := decodeRecord(r.Results).Lookup(step.HeadlineMetric); ok {
		if f, ok := v.(float64); ok {
			row.Metric = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return row
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// ---- handlers ----

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListRuns(db.RunFilter{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := DashboardData{Title: "Dashboard"}
	for _, id := range workload.StepIDs() {
		step, _ := workload.Lookup(id)
		st, err := analytics.QueryStats(s.db, step, "")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.Steps = append(data.Steps, StepCard{ID: step.ID, Name: step.Name, Stats: st})
	}

	// Most recent first.
	for i := len(runs) - 1; i >= 0 && len(data.Runs) < recentRuns; i-- {
		data.Runs = append(data.Runs, newRunRow(runs[i]))
	}

	if err := s.dashboardTmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("render dashboard", "error", err)
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := RunData{
		Title:   "Run " + run.ID,
		Run:     run,
		Summary: flatten("", decodeRecord(run.Summary)),
		Results: flatten("", decodeRecord(run.Results)),
	}
	if s.store != nil {
		if a, err := s.store.Load(run.ID); err == nil {
			data.Output = a.Output
		}
	}

	if err := s.runTmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("render run", "run", id, "error", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request, stepID string) {
	step, err := workload.Lookup(stepID)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = step.HeadlineMetric
	}
	points, err := s.db.MetricSeries(step.ID, metric)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(points) == 0 {
		http.Error(w, "no data", http.StatusNotFound)
		return
	}

	series := chart.Series{Title: step.Name, YLabel: metric}
	for _, p := range points {
		series.Values = append(series.Values, p.Value)
	}
	w.Header().Set("Content-Type", "image/png")
	if err := chart.Write(series, w, "png"); err != nil {
		s.logger.Error("render chart", "step", step.ID, "error", err)
	}
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.RunFilter{Status: q.Get("status"), Since: q.Get("since")}
	if stepID := q.Get("step"); stepID != "" {
		step, err := workload.Lookup(stepID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Step = step.ID
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	runs, err := s.db.ListRuns(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows := make([]RunRow, len(runs))
	for i, run := range runs {
		rows[i] = newRunRow(run)
	}
	writeJSON(w, rows)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		RunRow
		Summary *report.Record `json:"summary,omitempty"`
		Results *report.Record `json:"results,omitempty"`
		Error   string         `json:"error,omitempty"`
	}{newRunRow(*run), decodeRecord(run.Summary), decodeRecord(run.Results), run.Error})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request, stepID string) {
	step, err := workload.Lookup(stepID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	st, err := analytics.QueryStats(s.db, step, r.URL.Query().Get("metric"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}
