package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedDrivers is the set of database/sql driver names the store accepts.
var recognizedDrivers = map[string]bool{
	"sqlite3": true,
	"pgx":     true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	s := cfg.Sysbench
	if strings.TrimSpace(s.Binary) == "" {
		errs = append(errs, ValidationError{Field: "sysbench.binary", Message: "is required"})
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil {
			errs = append(errs, ValidationError{Field: "sysbench.timeout", Message: fmt.Sprintf("invalid duration %q", s.Timeout)})
		} else if d <= 0 {
			errs = append(errs, ValidationError{Field: "sysbench.timeout", Message: "must be positive"})
		}
	}
	if s.DefaultThreads < 1 {
		errs = append(errs, ValidationError{Field: "sysbench.default_threads", Message: "must be at least 1"})
	}
	for i, arg := range s.ExtraArgs {
		if !strings.HasPrefix(arg, "--") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sysbench.extra_args[%d]", i),
				Message: fmt.Sprintf("%q is not a --flag", arg),
			})
		}
		if strings.HasPrefix(arg, "--threads") {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("sysbench.extra_args[%d]", i),
				Message: "threads are set per run, not in extra_args",
			})
		}
	}

	if !recognizedDrivers[cfg.Database.Driver] {
		errs = append(errs, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unrecognized driver %q", cfg.Database.Driver),
		})
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, ValidationError{Field: "database.dsn", Message: "is required"})
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}
	if f := cfg.Log.Format; f != "text" && f != "json" {
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unrecognized format %q", f)})
	}

	return errs
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unrecognized level %q", s)
	}
	return l, nil
}
