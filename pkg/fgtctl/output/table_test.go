package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressEnvelope() any {
	return map[string]any{
		"http_status": float64(200),
		"status":      "success",
		"results": []any{
			map[string]any{
				"name":    "google-dns",
				"subnet":  "8.8.8.8/32",
				"type":    "ipmask",
				"comment": "Google DNS Server",
			},
			map[string]any{
				"name":    "test_host",
				"subnet":  "10.1.1.1/32",
				"type":    "ipmask",
				"comment": "",
			},
		},
	}
}

func policyEnvelope() any {
	return map[string]any{
		"results": []any{
			map[string]any{
				"policyid": float64(1),
				"name":     "Allow-Internal",
				"srcintf":  []any{map[string]any{"name": "internal"}, map[string]any{"name": "dmz"}},
				"dstintf":  []any{map[string]any{"name": "wan1"}},
				"srcaddr":  []any{map[string]any{"name": "all"}},
				"dstaddr":  []any{map[string]any{"name": "all"}},
				"action":   "accept",
				"status":   "enable",
			},
		},
	}
}

func TestWriteTableAddressFamily(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteTable(buf, addressEnvelope(), TableSpec{}))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "SUBNET")
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "COMMENT")
	assert.NotContains(t, out, "HTTP_STATUS", "envelope metadata must not leak into columns")
	assert.Contains(t, out, "google-dns")
	assert.Contains(t, out, "8.8.8.8/32")
	assert.Contains(t, out, "2 result(s)")
}

func TestWriteTablePolicyFamily(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteTable(buf, policyEnvelope(), TableSpec{}))

	out := buf.String()
	assert.Contains(t, out, "POLICYID")
	assert.Contains(t, out, "SRCINTF")
	assert.Contains(t, out, "internal, dmz", "object references must render as joined names")
	assert.Contains(t, out, "accept")
}

func TestWriteTableExplicitFields(t *testing.T) {
	buf := &bytes.Buffer{}
	spec := TableSpec{Fields: []string{"name", "comment"}}
	require.NoError(t, WriteTable(buf, addressEnvelope(), spec))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "COMMENT")
	assert.NotContains(t, out, "SUBNET")
}

func TestWriteTableEmptyResults(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"results": []any{}, "status": "success"}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{}))
	assert.Equal(t, "0 result(s)\n", buf.String())
}

func TestWriteTableIdempotent(t *testing.T) {
	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	envelope := policyEnvelope()
	spec := TableSpec{MaxWidth: 25}

	require.NoError(t, WriteTable(first, envelope, spec))
	require.NoError(t, WriteTable(second, envelope, spec))
	assert.Equal(t, first.String(), second.String())
}

func TestWriteTableTopLevelList(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := []any{
		map[string]any{"name": "port1", "ip": "10.0.0.1", "status": "up"},
		map[string]any{"name": "port2", "ip": "10.0.0.2", "status": "down"},
	}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{}))

	out := buf.String()
	assert.Contains(t, out, "port1")
	assert.Contains(t, out, "down")
	assert.Contains(t, out, "2 result(s)")
}

func TestWriteTableSingleRecordEnvelope(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"version": "v7.4.1", "serial": "FGT60F000000"}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{}))

	out := buf.String()
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "v7.4.1")
	assert.Contains(t, out, "1 result(s)")
}

func TestWriteTableKeyedResults(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{
		"results": map[string]any{
			"anycast_v4": map[string]any{
				"gw1_wan1": map[string]any{"status": "up"},
				"gw1_wan2": map[string]any{"status": "down"},
			},
			"anycast_v6": map[string]any{
				"gw1_wan1": map[string]any{"status": "down"},
			},
		},
	}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{}))

	out := buf.String()
	assert.Contains(t, out, "anycast_v4.gw1_wan1")
	assert.Contains(t, out, "anycast_v6.gw1_wan1")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "3 result(s)")
}

func TestDetectFieldsFallback(t *testing.T) {
	rec := map[string]any{
		"name":    "obj",
		"zone":    "dmz",
		"blob":    map[string]any{"a": 1, "b": 2, "c": 3, "d": 4},
		"enabled": true,
	}
	fields := DetectFields(rec, DefaultFamilies)
	assert.Equal(t, []string{"name", "enabled", "zone"}, fields, "name first, large nested blob excluded")
}

func TestFlattenValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		maxWidth int
		want     string
	}{
		{name: "nil", value: nil, maxWidth: 40, want: "-"},
		{name: "string", value: "hello", maxWidth: 40, want: "hello"},
		{name: "int number", value: float64(42), maxWidth: 40, want: "42"},
		{name: "float number", value: 2.5, maxWidth: 40, want: "2.5"},
		{name: "bool", value: true, maxWidth: 40, want: "true"},
		{
			name:     "name list",
			value:    []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}},
			maxWidth: 40,
			want:     "a, b",
		},
		{
			name:     "scalar list",
			value:    []any{"x", "y", float64(3)},
			maxWidth: 40,
			want:     "x, y, 3",
		},
		{name: "empty list", value: []any{}, maxWidth: 40, want: "-"},
		{
			name:     "flat map",
			value:    map[string]any{"min": float64(3), "max": float64(7)},
			maxWidth: 40,
			want:     "max=7, min=3",
		},
		{
			name:     "truncated string",
			value:    "this string is definitely too long",
			maxWidth: 10,
			want:     "this st...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlattenValue(tt.value, tt.maxWidth))
		})
	}
}

func TestFlattenValueDeterministic(t *testing.T) {
	v := map[string]any{"b": "2", "a": "1", "c": "3"}
	first := FlattenValue(v, 40)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, FlattenValue(v, 40))
	}
}

func TestWriteTableMaxWidth(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{
		"results": []any{
			map[string]any{"name": "x", "comment": strings.Repeat("long ", 20)},
		},
	}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{MaxWidth: 12}))
	assert.Contains(t, buf.String(), "...")
}

func TestWriteTableCustomFamilies(t *testing.T) {
	families := []FieldFamily{
		{Name: "widget", DetectKeys: []string{"widget_id"}, Fields: []string{"widget_id", "label"}},
	}
	envelope := map[string]any{
		"results": []any{
			map[string]any{"widget_id": float64(7), "label": "knob", "internal": "x"},
		},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteTable(buf, envelope, TableSpec{Families: families}))

	out := buf.String()
	assert.Contains(t, out, "WIDGET_ID")
	assert.Contains(t, out, "knob")
	assert.NotContains(t, out, "INTERNAL")
}
