package workload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucasnoah/sysbenchkit/internal/report"
)

// Output IDs returned by a step.
const (
	OutputSuccess = "success"
	OutputError   = "error"
)

// Params are the inputs shared by every step.
type Params struct {
	Operation string `json:"operation" yaml:"operation"`
	Threads   int    `json:"threads" yaml:"threads"`
}

// Validate reports whether p can be turned into a command line.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Operation) == "" {
		return fmt.Errorf("operation is required")
	}
	if strings.ContainsAny(p.Operation, " \t\n") {
		return fmt.Errorf("operation %q must be a single word", p.Operation)
	}
	if p.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", p.Threads)
	}
	return nil
}

// Step describes one sysbench workload: how to invoke it and how to turn its
// parsed report into typed records.
type Step struct {
	ID               string
	Name             string
	Description      string
	DefaultOperation string
	// HeadlineMetric is the dotted results path tracked across runs.
	HeadlineMetric string

	decode func(summary, results *report.Record) (any, error)
}

// Decode validates the parsed records and returns the step's typed output.
func (s *Step) Decode(summary, results *report.Record) (any, error) {
	return s.decode(summary, results)
}

var CPUStep = &Step{
	ID:               "sysbenchcpu",
	Name:             "Sysbench CPU Workload",
	Description:      "Run CPU performance test using the sysbench workload",
	DefaultOperation: "cpu",
	HeadlineMetric:   "CPUspeed.eventspersecond",
	decode: func(summary, results *report.Record) (any, error) {
		var w CPUWorkload
		if err := CPUOutputSchema.Decode(summary, &w.Output); err != nil {
			return nil, err
		}
		if err := CPUResultsSchema.Decode(results, &w.Results); err != nil {
			return nil, err
		}
		return &w, nil
	},
}

var MemoryStep = &Step{
	ID:               "sysbenchmemory",
	Name:             "Sysbench Memory Workload",
	Description:      "Run the Memory functions speed test using the sysbench workload",
	DefaultOperation: "memory",
	HeadlineMetric:   report.TransferredMiBPerSec,
	decode: func(summary, results *report.Record) (any, error) {
		var w MemoryWorkload
		if err := MemoryOutputSchema.Decode(summary, &w.Output); err != nil {
			return nil, err
		}
		if err := MemoryResultsSchema.Decode(results, &w.Results); err != nil {
			return nil, err
		}
		return &w, nil
	},
}

var steps = map[string]*Step{
	CPUStep.ID:    CPUStep,
	"cpu":         CPUStep,
	MemoryStep.ID: MemoryStep,
	"memory":      MemoryStep,
}

// Lookup returns the step registered under id or one of its aliases.
func Lookup(id string) (*Step, error) {
	s, ok := steps[id]
	if !ok {
		return nil, fmt.Errorf("unknown step %q (known: %s)", id, strings.Join(StepIDs(), ", "))
	}
	return s, nil
}

// StepIDs returns the canonical step IDs, sorted.
func StepIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range steps {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
