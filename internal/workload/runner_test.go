package workload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockCmd records calls and returns configured results.
type mockCmd struct {
	calls   []mockCall
	results []mockResult
	callIdx int
	wait    time.Duration
}

type mockCall struct {
	Name string
	Args []string
}

type mockResult struct {
	Output   string
	ExitCode int
	Err      error
}

func (m *mockCmd) Run(ctx context.Context, name string, args []string) (string, int, error) {
	m.calls = append(m.calls, mockCall{Name: name, Args: args})
	if m.wait > 0 {
		select {
		case <-ctx.Done():
			return "partial", -1, ctx.Err()
		case <-time.After(m.wait):
		}
	}
	if m.callIdx >= len(m.results) {
		return "", 0, nil
	}
	r := m.results[m.callIdx]
	m.callIdx++
	return r.Output, r.ExitCode, r.Err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "report", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestArgs(t *testing.T) {
	got := Args(Params{Operation: "cpu", Threads: 4}, []string{"--time=5"})
	want := []string{"--threads=4", "--time=5", "cpu", "run"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Args = %v, want %v", got, want)
	}
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		params Params
		ok     bool
	}{
		{Params{Operation: "cpu", Threads: 1}, true},
		{Params{Operation: "", Threads: 1}, false},
		{Params{Operation: "cpu run", Threads: 1}, false},
		{Params{Operation: "memory", Threads: 0}, false},
	}
	for _, c := range cases {
		err := c.params.Validate()
		if (err == nil) != c.ok {
			t.Errorf("Validate(%+v) error = %v, want ok=%v", c.params, err, c.ok)
		}
	}
}

func TestRunner_Run_CPU(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Output: fixture(t, "cpu.txt")}}}
	runner := NewRunner(mock, quietOptions())

	res, err := runner.Run(context.Background(), CPUStep, Params{Operation: "cpu", Threads: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected success, got error output %+v", res.Err)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.calls))
	}
	if mock.calls[0].Name != "sysbench" {
		t.Errorf("expected binary sysbench, got %q", mock.calls[0].Name)
	}
	if got := strings.Join(mock.calls[0].Args, " "); got != "--threads=2 cpu run" {
		t.Errorf("unexpected args %q", got)
	}

	w, ok := res.Output.(*CPUWorkload)
	if !ok {
		t.Fatalf("expected *CPUWorkload, got %T", res.Output)
	}
	if w.Output.NumberOfThreads != 2 {
		t.Errorf("Numberofthreads = %v, want 2", w.Output.NumberOfThreads)
	}
	if w.Output.TotalTime != 10.0008 {
		t.Errorf("totaltime = %v, want 10.0008", w.Output.TotalTime)
	}
	if w.Output.PrimeNumbersLimit != 10000 {
		t.Errorf("Primenumberslimit = %v, want 10000", w.Output.PrimeNumbersLimit)
	}
	if w.Results.CPUSpeed.EventsPerSecond != 2639.51 {
		t.Errorf("eventspersecond = %v, want 2639.51", w.Results.CPUSpeed.EventsPerSecond)
	}
	if w.Results.Latency.P95thpercentile != 0.87 {
		t.Errorf("P95thpercentile = %v, want 0.87", w.Results.Latency.P95thpercentile)
	}
	if w.Results.ThreadsFairness.Events != (Aggregate{Avg: 13200.5, Stddev: 17.5}) {
		t.Errorf("events = %+v", w.Results.ThreadsFairness.Events)
	}
	if w.Results.ThreadsFairness.ExecutionTime != (Aggregate{Avg: 9.9938, Stddev: 0}) {
		t.Errorf("executiontime = %+v", w.Results.ThreadsFairness.ExecutionTime)
	}
}

func TestRunner_Run_Memory(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Output: fixture(t, "memory.txt")}}}
	runner := NewRunner(mock, Options{Binary: "/usr/bin/sysbench", ExtraArgs: []string{"--time=10"}, Logger: quietOptions().Logger})

	res, err := runner.Run(context.Background(), MemoryStep, Params{Threads: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Succeeded() {
		t.Fatalf("expected success, got %+v", res.Err)
	}
	if res.Params.Operation != "memory" {
		t.Errorf("expected default operation memory, got %q", res.Params.Operation)
	}
	if got := strings.Join(mock.calls[0].Args, " "); got != "--threads=2 --time=10 memory run" {
		t.Errorf("unexpected args %q", got)
	}

	w := res.Output.(*MemoryWorkload)
	if w.Output.TotalOperations != 72227995 || w.Output.TotalOperationsPerSecond != 7221925.38 {
		t.Errorf("total operations = %v (%v/s)", w.Output.TotalOperations, w.Output.TotalOperationsPerSecond)
	}
	if w.Output.BlockSize != "1KiB" || w.Output.Scope != "global" || w.Output.Operation != "write" {
		t.Errorf("unexpected memory options %+v", w.Output)
	}
	if w.Results.TransferredMiB != 70535.15 || w.Results.TransferredMiBPerSec != 7052.66 {
		t.Errorf("transferred = %v MiB (%v MiB/s)", w.Results.TransferredMiB, w.Results.TransferredMiBPerSec)
	}
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Output: "FATAL: invalid test name", ExitCode: 1}}}
	runner := NewRunner(mock, quietOptions())

	res, err := runner.Run(context.Background(), CPUStep, Params{Operation: "cpuu", Threads: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OutputID != OutputError {
		t.Fatalf("expected error output, got %q", res.OutputID)
	}
	want := "sysbench failed with return code 1:\nFATAL: invalid test name"
	if res.Err.Error != want {
		t.Errorf("error = %q, want %q", res.Err.Error, want)
	}
	if res.Summary != nil {
		t.Error("parser must not run after a process failure")
	}
}

func TestRunner_Run_StartFailure(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{ExitCode: -1, Err: errors.New("executable file not found")}}}
	runner := NewRunner(mock, quietOptions())

	res, err := runner.Run(context.Background(), CPUStep, Params{Threads: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded() || !strings.Contains(res.Err.Error, "could not be started") {
		t.Errorf("unexpected result %+v", res.Err)
	}
}

func TestRunner_Run_Timeout(t *testing.T) {
	mock := &mockCmd{wait: time.Second}
	opts := quietOptions()
	opts.Timeout = 20 * time.Millisecond
	runner := NewRunner(mock, opts)

	res, err := runner.Run(context.Background(), CPUStep, Params{Threads: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded() || !strings.Contains(res.Err.Error, "timed out") {
		t.Errorf("expected timeout error, got %+v", res.Err)
	}
}

func TestRunner_Run_InvalidReport(t *testing.T) {
	mock := &mockCmd{results: []mockResult{{Output: fixture(t, "memory.txt")}}}
	runner := NewRunner(mock, quietOptions())

	// A memory report lacks the CPU speed section and the prime limit.
	res, err := runner.Run(context.Background(), CPUStep, Params{Threads: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Succeeded() {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(res.Err.Error, "sysbench_output_params.Primenumberslimit: is required") {
		t.Errorf("unexpected error %q", res.Err.Error)
	}
	if res.Summary == nil || res.Summary.Len() == 0 {
		t.Error("expected parsed summary to be kept on validation failure")
	}
}

func TestRunner_Run_InvalidParams(t *testing.T) {
	runner := NewRunner(&mockCmd{}, quietOptions())
	if _, err := runner.Run(context.Background(), CPUStep, Params{Threads: 0}); err == nil {
		t.Error("expected error for zero threads")
	}
}

func TestRunner_Repeat(t *testing.T) {
	cpu := fixture(t, "cpu.txt")
	mock := &mockCmd{results: []mockResult{{Output: cpu}, {Output: cpu}, {Output: cpu}}}
	runner := NewRunner(mock, quietOptions())

	results, err := runner.Repeat(context.Background(), CPUStep, Params{Threads: 2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 || len(mock.calls) != 3 {
		t.Fatalf("expected 3 runs, got %d results and %d calls", len(results), len(mock.calls))
	}
}

func TestRunner_Repeat_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(&mockCmd{}, quietOptions())

	results, err := runner.Repeat(ctx, CPUStep, Params{Threads: 1}, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestRunner_ParseOutput(t *testing.T) {
	runner := NewRunner(&mockCmd{}, quietOptions())
	res := runner.ParseOutput(CPUStep, Params{Operation: "cpu", Threads: 2}, fixture(t, "cpu.txt"))
	if !res.Succeeded() {
		t.Fatalf("expected success, got %+v", res.Err)
	}
}

func TestLookup(t *testing.T) {
	for _, id := range []string{"cpu", "sysbenchcpu"} {
		s, err := Lookup(id)
		if err != nil || s != CPUStep {
			t.Errorf("Lookup(%q) = %v, %v", id, s, err)
		}
	}
	if _, err := Lookup("fileio"); err == nil {
		t.Error("expected error for unknown step")
	}
	ids := StepIDs()
	if strings.Join(ids, ",") != "sysbenchcpu,sysbenchmemory" {
		t.Errorf("StepIDs = %v", ids)
	}
}
