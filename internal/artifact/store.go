package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasnoah/sysbenchkit/internal/report"
	"github.com/lucasnoah/sysbenchkit/internal/workload"
)

// File names written into each run directory.
const (
	OutputFile  = "output.txt"
	SummaryFile = "summary.json"
	ResultsFile = "results.json"
	ErrorFile   = "error.json"
)

// ErrNoArtifacts is returned by Load when a run directory does not exist.
var ErrNoArtifacts = errors.New("no artifacts for run")

// Store keeps the raw sysbench output and parsed records of each run on disk.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// RunDir returns the directory holding the artifacts of run id.
func (s *Store) RunDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

// Save writes the artifacts of res under RunDir(id). The raw output is always
// written; records only when the report parsed, the error only when the step
// failed.
func (s *Store) Save(id string, res *workload.StepResult) error {
	if id == "" {
		return fmt.Errorf("save artifacts: empty run id")
	}
	if err := s.writeFile(id, OutputFile, []byte(res.Raw)); err != nil {
		return err
	}
	if res.Summary != nil {
		if err := s.writeJSON(id, SummaryFile, res.Summary); err != nil {
			return err
		}
	}
	if res.Results != nil {
		if err := s.writeJSON(id, ResultsFile, res.Results); err != nil {
			return err
		}
	}
	if res.Err != nil {
		if err := s.writeJSON(id, ErrorFile, res.Err); err != nil {
			return err
		}
	}
	return nil
}

// Artifacts is what Load reads back for a run. Missing files leave their
// field zero.
type Artifacts struct {
	Output  string
	Summary *report.Record
	Results *report.Record
	Err     *workload.WorkloadError
}

// Load reads the artifacts stored for run id.
func (s *Store) Load(id string) (*Artifacts, error) {
	dir := s.RunDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w %s", ErrNoArtifacts, id)
	}

	var a Artifacts
	data, err := os.ReadFile(filepath.Join(dir, OutputFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read output: %w", err)
	}
	a.Output = string(data)

	if a.Summary, err = s.readRecord(id, SummaryFile); err != nil {
		return nil, err
	}
	if a.Results, err = s.readRecord(id, ResultsFile); err != nil {
		return nil, err
	}

	var we workload.WorkloadError
	if err := s.readJSON(id, ErrorFile, &we); err == nil {
		a.Err = &we
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return &a, nil
}

// Remove deletes the artifacts of run id. A missing directory is not an error.
func (s *Store) Remove(id string) error {
	if id == "" {
		return nil
	}
	return os.RemoveAll(s.RunDir(id))
}

// writeFile replaces name in the run directory of id through a temp file
// and rename, so a concurrent Load never sees a partial artifact.
func (s *Store) writeFile(id, name string, data []byte) error {
	dir := s.RunDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir %s: %w", id, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s for run %s: %w", name, id, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s for run %s: %w", name, id, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s for run %s: %w", name, id, err)
	}
	return nil
}

// writeJSON stores v as indented JSON. Records keep their field order.
func (s *Store) writeJSON(id, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s for run %s: %w", name, id, err)
	}
	return s.writeFile(id, name, append(data, '\n'))
}

// readJSON decodes name from the run directory of id. A missing file is
// returned unwrapped so callers can test it with os.IsNotExist.
func (s *Store) readJSON(id, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.RunDir(id), name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s for run %s: %w", name, id, err)
	}
	return nil
}

func (s *Store) readRecord(id, name string) (*report.Record, error) {
	rec := report.NewRecord()
	if err := s.readJSON(id, name, rec); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}
