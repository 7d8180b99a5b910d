package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/lucasnoah/sysbenchkit/internal/report"
)

// WorkloadError is the output of a step that did not produce records.
type WorkloadError struct {
	Error string `json:"error" yaml:"error"`
}

// StepResult holds everything one step invocation produced.
type StepResult struct {
	Step       string         `json:"step"`
	Params     Params         `json:"params"`
	OutputID   string         `json:"output_id"`
	DurationMs int            `json:"duration_ms"`
	ExitCode   int            `json:"exit_code"`
	Summary    *report.Record `json:"summary,omitempty"`
	Results    *report.Record `json:"results,omitempty"`
	Output     any            `json:"output,omitempty"`
	Err        *WorkloadError `json:"error,omitempty"`
	Raw        string         `json:"-"`
}

// Succeeded reports whether the step produced typed records.
func (r *StepResult) Succeeded() bool {
	return r.OutputID == OutputSuccess
}

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (output string, exitCode int, err error)
}

// ExecRunner implements CommandRunner with os/exec, capturing stdout and
// stderr into one buffer.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, name string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), exitErr.ExitCode(), nil
		}
		return out.String(), -1, fmt.Errorf("exec: %w", err)
	}
	return out.String(), 0, nil
}

// Options configure a Runner.
type Options struct {
	Binary    string
	ExtraArgs []string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Runner invokes sysbench for a step and turns the report into typed records.
type Runner struct {
	cmd    CommandRunner
	opts   Options
	parser *report.Parser
}

// NewRunner creates a Runner. Zero options fall back to "sysbench", no
// extra arguments and a ten minute timeout.
func NewRunner(cmd CommandRunner, opts Options) *Runner {
	if opts.Binary == "" {
		opts.Binary = "sysbench"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		cmd:    cmd,
		opts:   opts,
		parser: &report.Parser{Logger: opts.Logger},
	}
}

// Args builds the sysbench argument list: --threads=N, extra flags, the
// operation and "run".
func Args(params Params, extra []string) []string {
	args := []string{"--threads=" + strconv.Itoa(params.Threads)}
	args = append(args, extra...)
	return append(args, params.Operation, "run")
}

// Run executes step once. Process failures, timeouts and validation failures
// come back as an "error" output, never as a Go error; the returned error is
// reserved for invalid parameters.
func (r *Runner) Run(ctx context.Context, step *Step, params Params) (*StepResult, error) {
	if params.Operation == "" {
		params.Operation = step.DefaultOperation
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("step %s: %w", step.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	args := Args(params, r.opts.ExtraArgs)
	r.opts.Logger.Info("running sysbench workload", "step", step.ID, "binary", r.opts.Binary, "args", args)

	start := time.Now()
	output, exitCode, err := r.cmd.Run(ctx, r.opts.Binary, args)
	res := &StepResult{
		Step:       step.ID,
		Params:     params,
		DurationMs: int(time.Since(start).Milliseconds()),
		ExitCode:   exitCode,
		Raw:        output,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return res.fail(fmt.Sprintf("%s timed out after %s:\n%s", r.opts.Binary, r.opts.Timeout, output)), nil
	case err != nil:
		return res.fail(fmt.Sprintf("%s could not be started: %v", r.opts.Binary, err)), nil
	case exitCode != 0:
		return res.fail(fmt.Sprintf("%s failed with return code %d:\n%s", r.opts.Binary, exitCode, output)), nil
	}

	r.decode(step, res)
	r.opts.Logger.Info("workload run complete", "step", step.ID, "output", res.OutputID, "duration_ms", res.DurationMs)
	return res, nil
}

// Repeat runs step n times in sequence, stopping early if ctx is cancelled.
func (r *Runner) Repeat(ctx context.Context, step *Step, params Params, n int) ([]*StepResult, error) {
	if n < 1 {
		n = 1
	}
	var all []*StepResult
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		res, err := r.Run(ctx, step, params)
		if err != nil {
			return all, err
		}
		all = append(all, res)
	}
	return all, nil
}

// ParseOutput decodes already captured sysbench output for step.
func (r *Runner) ParseOutput(step *Step, params Params, output string) *StepResult {
	res := &StepResult{Step: step.ID, Params: params, Raw: output}
	r.decode(step, res)
	return res
}

func (r *Runner) decode(step *Step, res *StepResult) {
	res.Summary, res.Results = r.parser.Parse(strings.TrimSpace(res.Raw))
	typed, err := step.Decode(res.Summary, res.Results)
	if err != nil {
		res.fail(fmt.Sprintf("%s: invalid sysbench report: %v", step.ID, err))
		return
	}
	res.OutputID = OutputSuccess
	res.Output = typed
}

func (r *StepResult) fail(msg string) *StepResult {
	r.OutputID = OutputError
	r.Err = &WorkloadError{Error: msg}
	return r
}
