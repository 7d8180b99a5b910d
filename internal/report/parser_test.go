package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParse_Empty(t *testing.T) {
	summary, results := Parse("")
	assert.Equal(t, 0, summary.Len())
	assert.Equal(t, 0, results.Len())
}

func TestParse_CPUReport(t *testing.T) {
	summary, results := Parse(readFixture(t, "cpu.txt"))

	assert.Equal(t, []string{"Numberofthreads", "Primenumberslimit", "totaltime", "totalnumberofevents"}, summary.Keys())
	assert.Equal(t, map[string]any{
		"Numberofthreads":     2.0,
		"Primenumberslimit":   10000.0,
		"totaltime":           10.0008,
		"totalnumberofevents": 26401.0,
	}, summary.Map())

	assert.Equal(t, []string{"CPUspeed", "Latency", "Threadsfairness"}, results.Keys())
	assert.Equal(t, map[string]any{
		"CPUspeed": map[string]any{"eventspersecond": 2639.51},
		"Latency": map[string]any{
			"min":             0.67,
			"avg":             0.76,
			"max":             1.26,
			"P95thpercentile": 0.87,
			"sum":             19987.57,
		},
		"Threadsfairness": map[string]any{
			"events":        map[string]any{"avg": 13200.5, "stddev": 17.5},
			"executiontime": map[string]any{"avg": 9.9938, "stddev": 0.0},
		},
	}, results.Map())
}

func TestParse_MemoryReport(t *testing.T) {
	summary, results := Parse(readFixture(t, "memory.txt"))

	assert.Equal(t, map[string]any{
		"Numberofthreads":          2.0,
		"blocksize":                "1KiB",
		"totalsize":                "102400MiB",
		"operation":                "write",
		"scope":                    "global",
		"Totaloperations":          72227995.0,
		"Totaloperationspersecond": 7221925.38,
		"totaltime":                10.0001,
		"totalnumberofevents":      72227995.0,
	}, summary.Map())

	v, ok := results.Float(TransferredMiB)
	require.True(t, ok)
	assert.Equal(t, 70535.15, v)
	v, ok = results.Float(TransferredMiBPerSec)
	require.True(t, ok)
	assert.Equal(t, 7052.66, v)

	events := results.Section("Threadsfairness").Section("events")
	require.NotNil(t, events)
	assert.Equal(t, map[string]any{"avg": 36113997.5, "stddev": 710393.5}, events.Map())
}

func TestParse_Idempotent(t *testing.T) {
	raw := readFixture(t, "memory.txt")
	s1, r1 := Parse(raw)
	s2, r2 := Parse(raw)
	assert.Equal(t, s1.Map(), s2.Map())
	assert.Equal(t, r1.Map(), r2.Map())
	assert.Equal(t, s1.Keys(), s2.Keys())
	assert.Equal(t, r1.Keys(), r2.Keys())
}

func TestParse_TotalOperationsSplit(t *testing.T) {
	summary, _ := Parse("Total operations: 72227995 (7221925.38 per second)")

	count, ok := summary.Float(TotalOperations)
	require.True(t, ok)
	assert.Equal(t, 72227995.0, count)
	rate, ok := summary.Float(TotalOperationsPerSecond)
	require.True(t, ok)
	assert.Equal(t, 7221925.38, rate)
	assert.Equal(t, 2, summary.Len())
}

func TestParse_TransferredSplit(t *testing.T) {
	summary, results := Parse("70535.15MiBtransferred(7052.66MiB/sec)")

	assert.Equal(t, 0, summary.Len())
	assert.Equal(t, map[string]any{
		TransferredMiB:       70535.15,
		TransferredMiBPerSec: 7052.66,
	}, results.Map())
}

func TestParse_TransferredIsTopLevelInsideSection(t *testing.T) {
	raw := "Threads fairness:\n70535.15 MiB transferred (7052.66 MiB/sec)\n"
	_, results := Parse(raw)

	assert.Equal(t, 0, results.Section("Threadsfairness").Len())
	_, ok := results.Float(TransferredMiB)
	assert.True(t, ok)
}

func TestParse_AvgStddevPair(t *testing.T) {
	_, results := Parse("Threads fairness:\nevents(avg/stddev):13200.50/17.50\n")

	pair := results.Section("Threadsfairness").Section("events")
	require.NotNil(t, pair)
	assert.Equal(t, []string{"avg", "stddev"}, pair.Keys())
	assert.Equal(t, map[string]any{"avg": 13200.5, "stddev": 17.5}, pair.Map())
}

func TestParse_AvgStddevWithoutSlashKeepsString(t *testing.T) {
	_, results := Parse("Threads fairness:\nevents (avg/stddev): none\n")
	sec := results.Section("Threadsfairness")
	v, _ := sec.Get("events")
	assert.Equal(t, "none", v)
}

func TestParse_LatencyConsolidation(t *testing.T) {
	raw := `Latency statistics:
min: 0.67
avg: 0.76
Other section:
foo: 1
request latency p99: 4.5
bar: 2
Next:
baz: 3
`
	_, results := Parse(raw)

	assert.Equal(t, []string{LatencySection, "Othersection", "Next"}, results.Keys())
	assert.Equal(t, map[string]any{
		"min":               0.67,
		"avg":               0.76,
		"requestlatencyp99": 4.5,
		"bar":               2.0,
	}, results.Section(LatencySection).Map())
	assert.Equal(t, map[string]any{"foo": 1.0}, results.Section("Othersection").Map())
	assert.Equal(t, map[string]any{"baz": 3.0}, results.Section("Next").Map())
}

func TestParse_DigitLedKey(t *testing.T) {
	_, results := Parse("Latency (ms):\n95th percentile: 0.87\n99th percentile: 1.02\nmax: 1.26\n")

	lat := results.Section(LatencySection)
	v, ok := lat.Float("P95thpercentile")
	require.True(t, ok)
	assert.Equal(t, 0.87, v)
	_, ok = lat.Float("P99thpercentile")
	assert.True(t, ok)
	_, ok = lat.Float("Pmax")
	assert.False(t, ok, "alphabetic keys must not be prefixed")
}

func TestParse_EmptySection(t *testing.T) {
	_, results := Parse("CPU speed:\nThreads fairness:\n")
	assert.Equal(t, []string{"CPUspeed", "Threadsfairness"}, results.Keys())
	assert.Equal(t, 0, results.Section("CPUspeed").Len())
}

func TestParse_GeneralHeaderReturnsToSummary(t *testing.T) {
	raw := "CPU speed:\nevents per second: 10\nGeneral statistics:\ntotal time: 1.5s\n"
	summary, results := Parse(raw)

	assert.Equal(t, map[string]any{"totaltime": 1.5}, summary.Map())
	assert.Equal(t, map[string]any{"eventspersecond": 10.0}, results.Section("CPUspeed").Map())
}

func TestParse_SkipsUnclassifiedLines(t *testing.T) {
	summary, results := Parse("Threads started!\n:\n   \nInitializing worker threads...\n")
	assert.Equal(t, 0, summary.Len())
	assert.Equal(t, 0, results.Len())
}

func TestParse_NonNumericFallsBackToString(t *testing.T) {
	summary, _ := Parse("total time: abc\nscope: global\nvalue: 1.2.3\n")
	assert.Equal(t, map[string]any{
		"totaltime": "abc",
		"scope":     "global",
		"value":     "1.2.3",
	}, summary.Map())
}

func TestParse_TotalTimeStripsOnlySecondsSuffix(t *testing.T) {
	summary, _ := Parse("total time: 12ms\n")
	v, _ := summary.Get("totaltime")
	assert.Equal(t, "12ms", v)

	summary, _ = Parse("total time: 4s\n")
	v, _ = summary.Get("totaltime")
	assert.Equal(t, 4.0, v)
}

// Without a "General statistics:" header, fields after the last section
// header stay in that section.
func TestParse_CompactFragmentWithoutGeneralHeader(t *testing.T) {
	raw := strings.Join([]string{
		"Numberofthreads:2",
		"CPUspeed:",
		"eventspersecond:2639.51",
		"Latencystatistics:",
		"min:0.67",
		"avg:0.76",
		"max:1.26",
		"95thpercentile:0.87",
		"sum:19987.57",
		"Threadsfairness:",
		"events(avg/stddev):13200.50/17.50",
		"executiontime(avg/stddev):9.9938/0.00",
		"totaltime:10.0008s",
		"totalnumberofevents:26401",
	}, "\n")
	summary, results := Parse(raw)

	assert.Equal(t, map[string]any{"Numberofthreads": 2.0}, summary.Map())
	assert.Equal(t, map[string]any{"eventspersecond": 2639.51}, results.Section("CPUspeed").Map())
	assert.Equal(t, map[string]any{
		"min": 0.67, "avg": 0.76, "max": 1.26, "P95thpercentile": 0.87, "sum": 19987.57,
	}, results.Section(LatencySection).Map())
	assert.Equal(t, map[string]any{
		"events":              map[string]any{"avg": 13200.5, "stddev": 17.5},
		"executiontime":       map[string]any{"avg": 9.9938, "stddev": 0.0},
		"totaltime":           "10.0008s",
		"totalnumberofevents": 26401.0,
	}, results.Section("Threadsfairness").Map())
}

func TestIsNumber(t *testing.T) {
	valid := []string{"0", "26401", "10.0008", "-3.5", "+2", ".5", "7.", "1e6", "2.5E-3"}
	for _, s := range valid {
		assert.True(t, IsNumber(s), "expected %q to be numeric", s)
	}
	invalid := []string{"", "NaN", "Inf", "1KiB", "0x1p4", "1.2.3", "-", "10.0008s", "1_000"}
	for _, s := range invalid {
		assert.False(t, IsNumber(s), "expected %q to be non-numeric", s)
	}
}

func TestRecord_JSONRoundTripKeepsOrder(t *testing.T) {
	_, results := Parse(readFixture(t, "cpu.txt"))

	data, err := json.Marshal(results)
	require.NoError(t, err)

	decoded := NewRecord()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, results.Keys(), decoded.Keys())
	assert.Equal(t, results.Map(), decoded.Map())
	assert.Equal(t, []string{"min", "avg", "max", "P95thpercentile", "sum"}, decoded.Section(LatencySection).Keys())
}
