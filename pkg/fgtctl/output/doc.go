// Package output renders FortiGate API response envelopes as compact JSON,
// indented JSON, YAML, or a flattened table with auto-detected columns.
package output
