package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/sysbenchkit/internal/report"
)

// Run represents a row in the runs table. Summary and Results hold the
// parsed records as JSON.
type Run struct {
	ID         string
	Step       string
	Operation  string
	Threads    int
	Status     string
	ExitCode   int
	DurationMs int
	Summary    string
	Results    string
	Error      string
	CreatedAt  string
}

// RunFilter narrows ListRuns. Zero fields match everything.
type RunFilter struct {
	Step   string
	Status string
	Since  string
	Limit  int
}

// TimeFormat is the layout of created_at. It is fixed width so timestamps
// sort lexically.
const TimeFormat = "2006-01-02T15:04:05.000000Z07:00"

func now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// LogRun inserts r, assigning ID and CreatedAt when empty, and returns the ID.
func (d *DB) LogRun(r *Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == "" {
		r.CreatedAt = now()
	}
	_, err := d.conn.Exec(d.rebind(
		`INSERT INTO runs (id, step, operation, threads, status, exit_code, duration_ms, summary, results, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Step, r.Operation, r.Threads, r.Status, r.ExitCode, r.DurationMs,
		nullString(r.Summary), nullString(r.Results), nullString(r.Error), r.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("log run: %w", err)
	}
	return r.ID, nil
}

const runColumns = `id, step, operation, threads, status, exit_code, duration_ms, summary, results, error, created_at`

// GetRun returns the run with the given ID, or ErrNotFound.
func (d *DB) GetRun(id string) (*Run, error) {
	row := d.conn.QueryRow(d.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recent run for step, or of any step when step
// is empty. It returns ErrNotFound when there is none.
func (d *DB) LatestRun(step string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []interface{}
	if step != "" {
		query += ` WHERE step = ?`
		args = append(args, step)
	}
	row := d.conn.QueryRow(d.rebind(query+` ORDER BY created_at DESC LIMIT 1`), args...)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		if step == "" {
			return nil, fmt.Errorf("latest run: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("latest %s run: %w", step, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs matching f, oldest first.
func (d *DB) ListRuns(f RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []interface{}
	if f.Step != "" {
		query += ` AND step = ?`
		args = append(args, f.Step)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Since != "" {
		query += ` AND created_at >= ?`
		args = append(args, f.Since)
	}
	query += ` ORDER BY created_at ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := d.conn.Query(d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// MetricPoint is one value of a metric taken from a stored run.
type MetricPoint struct {
	RunID     string
	CreatedAt string
	Value     float64
}

// MetricSeries extracts the numeric value at the dotted results path from
// every successful run of step, oldest first. Runs without the metric are
// skipped.
func (d *DB) MetricSeries(step, path string) ([]MetricPoint, error) {
	runs, err := d.ListRuns(RunFilter{Step: step, Status: "success"})
	if err != nil {
		return nil, err
	}
	var points []MetricPoint
	for _, r := range runs {
		if r.Results == "" {
			continue
		}
		rec := report.NewRecord()
		if err := json.Unmarshal([]byte(r.Results), rec); err != nil {
			return nil, fmt.Errorf("decode results of run %s: %w", r.ID, err)
		}
		v, ok := rec.Lookup(path)
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			continue
		}
		points = append(points, MetricPoint{RunID: r.ID, CreatedAt: r.CreatedAt, Value: f})
	}
	return points, nil
}

// DeleteRun removes a run, returning ErrNotFound if it does not exist.
func (d *DB) DeleteRun(id string) error {
	res, err := d.conn.Exec(d.rebind(`DELETE FROM runs WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var summary, results, errText sql.NullString
	if err := s.Scan(&r.ID, &r.Step, &r.Operation, &r.Threads, &r.Status, &r.ExitCode,
		&r.DurationMs, &summary, &results, &errText, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Summary = summary.String
	r.Results = results.String
	r.Error = errText.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
