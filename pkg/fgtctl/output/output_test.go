package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"json", "pretty", "yaml", "table"} {
		format, err := ParseFormat(valid)
		require.NoError(t, err)
		assert.Equal(t, Format(valid), format)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"status": "success", "results": []any{}}
	require.NoError(t, Write(buf, FormatJSON, envelope, TableSpec{}))
	assert.Equal(t, `{"results":[],"status":"success"}`+"\n", buf.String())
}

func TestWritePretty(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"status": "success"}
	require.NoError(t, Write(buf, FormatPretty, envelope, TableSpec{}))
	assert.Equal(t, "{\n  \"status\": \"success\"\n}\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"status": "success", "http_status": 200}
	require.NoError(t, Write(buf, FormatYAML, envelope, TableSpec{}))
	assert.Contains(t, buf.String(), "status: success")
	assert.Contains(t, buf.String(), "http_status: 200")
}

func TestWriteTableDispatch(t *testing.T) {
	buf := &bytes.Buffer{}
	envelope := map[string]any{"results": []any{}}
	require.NoError(t, Write(buf, FormatTable, envelope, TableSpec{}))
	assert.Equal(t, "0 result(s)\n", buf.String())
}

func TestWriteUnknownFormat(t *testing.T) {
	require.Error(t, Write(&bytes.Buffer{}, Format("csv"), nil, TableSpec{}))
}
