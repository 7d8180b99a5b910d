// Package report converts the human-readable report printed by sysbench into
// ordered summary and results records.
package report

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Field names produced from composite lines.
const (
	LatencySection           = "Latency"
	TotalOperations          = "Totaloperations"
	TotalOperationsPerSecond = "Totaloperationspersecond"
	TransferredMiB           = "transferred_MiB"
	TransferredMiBPerSec     = "transferred_MiBpersec"

	avgStddevMarker   = "(avg/stddev)"
	transferredMarker = "transferred"
	percentilePrefix  = "P"
)

var (
	annotationRe = regexp.MustCompile(`\(.*?\)`)
	numberRe     = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// lineKind classifies a whitespace-stripped report line.
type lineKind int

const (
	lineSkip   lineKind = iota // no separator or no key
	lineHeader                 // "name:" with nothing after the colon
	lineField                  // "key:value"
)

// classify splits line at its first colon and reports what it is.
// Digit-led keys get the percentile prefix.
func classify(line string) (kind lineKind, key, value string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok || key == "" {
		return lineSkip, "", ""
	}
	if unicode.IsDigit(rune(key[0])) {
		key = percentilePrefix + key
	}
	if value == "" {
		return lineHeader, key, ""
	}
	return lineField, key, value
}

// state is the parser cursor threaded through one Parse call.
// A nil section routes fields to the summary.
type state struct {
	summary *Record
	results *Record
	section *Record
}

func (s *state) openSection(name string) {
	sec := NewRecord()
	s.results.Set(name, sec)
	s.section = sec
}

// useSection points the cursor at name, creating the section if needed.
func (s *state) useSection(name string) {
	if sec := s.results.Section(name); sec != nil {
		s.section = sec
		return
	}
	s.openSection(name)
}

// Parser turns raw sysbench output into records. The zero value is ready to
// use; Logger, if set, receives the parsed records at debug level.
type Parser struct {
	Logger *slog.Logger
}

// Parse is shorthand for (&Parser{}).Parse(raw).
func Parse(raw string) (summary, results *Record) {
	return (&Parser{}).Parse(raw)
}

// Parse walks raw once and returns the summary and results records. It never
// fails: lines it cannot classify are dropped.
func (p *Parser) Parse(raw string) (summary, results *Record) {
	st := &state{summary: NewRecord(), results: NewRecord()}

	for _, line := range strings.Split(raw, "\n") {
		line = stripSpace(line)
		if line == "" {
			continue
		}

		kind, key, value := classify(line)
		switch kind {
		case lineHeader:
			st.header(key)
		case lineField:
			if st.section == nil {
				st.summaryField(key, value)
			} else {
				st.sectionField(key, value)
			}
		}

		if strings.Contains(line, transferredMarker) {
			st.transferred(line)
		}
	}

	if p.Logger != nil {
		p.Logger.Debug("sysbench output", "summary", st.summary.Map())
		p.Logger.Debug("sysbench results", "results", st.results.Map())
	}
	return st.summary, st.results
}

func (s *state) header(key string) {
	name := annotationRe.ReplaceAllString(key, "")
	switch {
	case strings.Contains(name, "options") || strings.Contains(name, "General"):
		s.section = nil
	case strings.Contains(strings.ToLower(name), "latency"):
		s.useSection(LatencySection)
	default:
		s.openSection(name)
	}
}

func (s *state) summaryField(key, value string) {
	switch {
	case strings.Contains(key, "totaltime"):
		if secs := strings.TrimSuffix(value, "s"); IsNumber(secs) {
			s.summary.Set(key, numberOrString(secs))
		} else {
			s.summary.Set(key, value)
		}
	case strings.Contains(key, TotalOperations):
		count, rate, ok := strings.Cut(value, "(")
		if !ok {
			s.summary.Set(TotalOperations, numberOrString(value))
			return
		}
		s.summary.Set(TotalOperations, numberOrString(count))
		s.summary.Set(TotalOperationsPerSecond, numberOrString(strings.TrimSuffix(rate, "persecond)")))
	default:
		s.summary.Set(key, numberOrString(value))
	}
}

func (s *state) sectionField(key, value string) {
	if strings.Contains(key, "latency") {
		s.useSection(LatencySection)
	}
	if strings.Contains(key, avgStddevMarker) {
		key = strings.ReplaceAll(key, avgStddevMarker, "")
		avg, stddev, ok := strings.Cut(value, "/")
		if !ok {
			s.section.Set(key, value)
			return
		}
		pair := NewRecord()
		pair.Set("avg", numberOrString(avg))
		pair.Set("stddev", numberOrString(stddev))
		s.section.Set(key, pair)
		return
	}
	s.section.Set(key, numberOrString(value))
}

// transferred handles "70535.15MiBtransferred(7052.66MiB/sec)".
func (s *state) transferred(line string) {
	amount, rate, _ := strings.Cut(line, transferredMarker)
	amount = strings.TrimSuffix(amount, "MiB")
	rate = strings.NewReplacer("(", "", ")", "").Replace(rate)
	rate = strings.TrimSuffix(rate, "MiB/sec")
	s.results.Set(TransferredMiB, numberOrString(amount))
	s.results.Set(TransferredMiBPerSec, numberOrString(rate))
}

// IsNumber reports whether s is a plain decimal literal, optionally signed
// and with an exponent.
func IsNumber(s string) bool {
	return numberRe.MatchString(s)
}

// numberOrString returns s as float64 when it is a numeric literal and the
// literal string otherwise.
func numberOrString(s string) any {
	if !IsNumber(s) {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func stripSpace(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line)
}
