package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
	FormatYAML   Format = "yaml"
	FormatTable  Format = "table"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatPretty, FormatYAML, FormatTable:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Write renders the response envelope in the requested format. The table
// spec is only consulted in table mode.
func Write(w io.Writer, format Format, envelope any, spec TableSpec) error {
	switch format {
	case FormatJSON:
		data, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatPretty:
		data, err := json.MarshalIndent(envelope, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(envelope)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatTable:
		return WriteTable(w, envelope, spec)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
