package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// DefaultMaxWidth caps cell text when the table spec does not say otherwise.
const DefaultMaxWidth = 40

// TableSpec controls table rendering. Zero values select auto-detected
// fields, the default width cap, and the default field families.
type TableSpec struct {
	Fields   []string
	MaxWidth int
	Families []FieldFamily
}

// FieldFamily describes a well-known record shape and the curated column
// subset that reads best for it. A record belongs to a family when all of
// its DetectKeys are present. The set is data, not logic; callers can
// provide their own via TableSpec.Families.
type FieldFamily struct {
	Name       string
	DetectKeys []string
	Fields     []string
}

// DefaultFamilies covers the object types people list most often.
var DefaultFamilies = []FieldFamily{
	{
		Name:       "address",
		DetectKeys: []string{"subnet"},
		Fields:     []string{"name", "subnet", "type", "comment"},
	},
	{
		Name:       "policy",
		DetectKeys: []string{"policyid"},
		Fields:     []string{"policyid", "name", "srcintf", "dstintf", "srcaddr", "dstaddr", "action", "status"},
	},
	{
		Name:       "interface",
		DetectKeys: []string{"ip", "status"},
		Fields:     []string{"name", "ip", "status", "type", "alias"},
	},
}

// WriteTable renders the envelope as a flattened table. An empty record
// set produces a count notice instead of a bare header.
func WriteTable(w io.Writer, envelope any, spec TableSpec) error {
	records := Records(envelope)
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "0 result(s)")
		return err
	}

	fields := spec.Fields
	if len(fields) == 0 {
		families := spec.Families
		if families == nil {
			families = DefaultFamilies
		}
		fields = DetectFields(records[0], families)
	}
	if len(fields) == 0 {
		fields = []string{"value"}
	}

	maxWidth := spec.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.ToUpper(strings.Join(fields, "\t")))
	for _, rec := range records {
		cells := make([]string, len(fields))
		for i, field := range fields {
			cells[i] = FlattenValue(rec[field], maxWidth)
		}
		_, _ = fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d result(s)\n", len(records))
	return err
}

// Records locates the record set inside an arbitrary envelope. The usual
// shape is a map with a "results" list; a bare top-level list is taken as
// the record set, and anything else becomes a single one-row record.
func Records(envelope any) []map[string]any {
	switch v := envelope.(type) {
	case nil:
		return nil
	case map[string]any:
		if results, ok := v["results"]; ok {
			return resultsRecords(results)
		}
		return []map[string]any{v}
	case []any:
		return listRecords(v)
	default:
		return []map[string]any{{"value": v}}
	}
}

func resultsRecords(results any) []map[string]any {
	switch v := results.(type) {
	case nil:
		return nil
	case []any:
		return listRecords(v)
	case map[string]any:
		return expandKeyed("", v)
	default:
		return []map[string]any{{"value": v}}
	}
}

func listRecords(items []any) []map[string]any {
	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
			continue
		}
		records = append(records, map[string]any{"value": item})
	}
	return records
}

// expandKeyed turns a keyed map of records into rows, one per leaf record,
// descending while values are maps of maps. Row names join the key path
// with dots. Keys are walked in sorted order so output is stable; JSON
// object order is not observable after decoding.
func expandKeyed(prefix string, m map[string]any) []map[string]any {
	var rows []map[string]any
	for _, key := range sortedKeys(m) {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		child, ok := m[key].(map[string]any)
		if !ok {
			rows = append(rows, map[string]any{"name": name, "value": m[key]})
			continue
		}
		if len(child) > 0 && allMapValues(child) {
			rows = append(rows, expandKeyed(name, child)...)
			continue
		}
		row := map[string]any{"name": name}
		for k, v := range child {
			if k != "name" {
				row[k] = v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func allMapValues(m map[string]any) bool {
	for _, v := range m {
		if _, ok := v.(map[string]any); !ok {
			return false
		}
	}
	return true
}

// DetectFields picks the columns for a record set from its first record:
// a curated family subset when the record matches one, otherwise every key
// with a displayable value, "name" first.
func DetectFields(rec map[string]any, families []FieldFamily) []string {
	for _, family := range families {
		if !hasAllKeys(rec, family.DetectKeys) {
			continue
		}
		fields := make([]string, 0, len(family.Fields))
		for _, f := range family.Fields {
			if _, ok := rec[f]; ok {
				fields = append(fields, f)
			}
		}
		if len(fields) > 0 {
			return fields
		}
	}

	fields := make([]string, 0, len(rec))
	for _, k := range sortedKeys(rec) {
		if k == "name" {
			continue
		}
		if displayable(rec[k]) {
			fields = append(fields, k)
		}
	}
	if _, ok := rec["name"]; ok {
		fields = append([]string{"name"}, fields...)
	}
	return fields
}

func hasAllKeys(rec map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			return false
		}
	}
	return true
}

// displayable filters out large nested blobs from auto-detected columns.
// Explicitly requested fields bypass this.
func displayable(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) <= 3
	case []any:
		return len(t) <= 8
	default:
		return true
	}
}

// FlattenValue turns one cell value into display text. Pure and
// deterministic: the same value and width always produce the same text.
func FlattenValue(v any, maxWidth int) string {
	return truncate(flatten(v), maxWidth)
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	case []any:
		return flattenList(t)
	case map[string]any:
		return flattenMap(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func flattenList(items []any) string {
	if len(items) == 0 {
		return "-"
	}
	if names, ok := nameList(items); ok {
		return strings.Join(names, ", ")
	}
	allScalar := true
	parts := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			allScalar = false
		default:
			parts = append(parts, flatten(item))
		}
		if !allScalar {
			break
		}
	}
	if allScalar {
		return strings.Join(parts, ", ")
	}
	return compactJSON(items)
}

// nameList reports the member names when every item is an object exposing
// a "name" key, the shape FortiGate uses for object references.
func nameList(items []any) ([]string, bool) {
	names := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		name, ok := m["name"].(string)
		if !ok {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

func flattenMap(m map[string]any) string {
	if len(m) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		switch m[k].(type) {
		case map[string]any, []any:
			return compactJSON(m)
		default:
			parts = append(parts, k+"="+flatten(m[k]))
		}
	}
	return strings.Join(parts, ", ")
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 || len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
