package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/sysbenchkit/internal/db"
	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

// runView is the machine-readable shape of one step invocation: the output
// ID plus either the typed records or the error.
type runView struct {
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	Step       string `json:"step" yaml:"step"`
	Operation  string `json:"operation" yaml:"operation"`
	Threads    int    `json:"threads" yaml:"threads"`
	OutputID   string `json:"output_id" yaml:"output_id"`
	DurationMs int    `json:"duration_ms" yaml:"duration_ms"`
	ExitCode   int    `json:"exit_code" yaml:"exit_code"`
	Output     any    `json:"output" yaml:"output"`
}

func newRunView(id string, res *workload.StepResult) runView {
	v := runView{
		ID:         id,
		Step:       res.Step,
		Operation:  res.Params.Operation,
		Threads:    res.Params.Threads,
		OutputID:   res.OutputID,
		DurationMs: res.DurationMs,
		ExitCode:   res.ExitCode,
		Output:     res.Output,
	}
	if !res.Succeeded() {
		v.Output = res.Err
	}
	return v
}

func validateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (want one of %v)", format, allowed)
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

// toRun converts a step result into a history row.
func toRun(res *workload.StepResult) (*db.Run, error) {
	r := &db.Run{
		Step:       res.Step,
		Operation:  res.Params.Operation,
		Threads:    res.Params.Threads,
		Status:     res.OutputID,
		ExitCode:   res.ExitCode,
		DurationMs: res.DurationMs,
	}
	if res.Summary != nil {
		data, err := json.Marshal(res.Summary)
		if err != nil {
			return nil, fmt.Errorf("encode summary: %w", err)
		}
		r.Summary = string(data)
	}
	if res.Results != nil {
		data, err := json.Marshal(res.Results)
		if err != nil {
			return nil, fmt.Errorf("encode results: %w", err)
		}
		r.Results = string(data)
	}
	if res.Err != nil {
		r.Error = res.Err.Error
	}
	return r, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// metricString renders the value at path in rec, or "-".
func metricString(rec *report.Record, path string) string {
	v, ok := rec.Lookup(path)
	if !ok {
		return "-"
	}
	if f, ok := v.(float64); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

// decodeRecord parses a stored JSON record; empty input yields nil.
func decodeRecord(data string) (*report.Record, error) {
	if data == "" {
		return nil, nil
	}
	rec := report.NewRecord()
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
