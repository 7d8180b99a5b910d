package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRecord_SetKeepsPosition(t *testing.T) {
	r := NewRecord()
	r.Set("a", 1.0)
	r.Set("b", 2.0)
	r.Set("a", 3.0)

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestRecord_NilIsEmpty(t *testing.T) {
	var r *Record
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Keys())
	_, ok := r.Get("x")
	assert.False(t, ok)
	assert.Nil(t, r.Section("x"))
}

func TestRecord_Lookup(t *testing.T) {
	_, results := Parse(readFixture(t, "cpu.txt"))

	v, ok := results.Lookup("CPUspeed.eventspersecond")
	require.True(t, ok)
	assert.Equal(t, 2639.51, v)

	v, ok = results.Lookup("Threadsfairness.events.stddev")
	require.True(t, ok)
	assert.Equal(t, 17.5, v)

	_, ok = results.Lookup("CPUspeed.missing")
	assert.False(t, ok)
	_, ok = results.Lookup("CPUspeed.eventspersecond.deeper")
	assert.False(t, ok)
}

func TestRecord_MarshalYAMLKeepsOrder(t *testing.T) {
	_, results := Parse(readFixture(t, "cpu.txt"))

	data, err := yaml.Marshal(results)
	require.NoError(t, err)
	out := string(data)

	cpu := strings.Index(out, "CPUspeed:")
	lat := strings.Index(out, "Latency:")
	fair := strings.Index(out, "Threadsfairness:")
	require.True(t, cpu >= 0 && lat >= 0 && fair >= 0, "missing sections in:\n%s", out)
	assert.True(t, cpu < lat && lat < fair, "sections out of order:\n%s", out)
	assert.Contains(t, out, "eventspersecond: 2639.51")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Len(t, back, 3)
}
