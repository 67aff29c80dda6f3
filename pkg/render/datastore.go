package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	maxTableColumns = 8
	maxTableRows    = 50
	maxCellLength   = 50
)

// DatastoreQuery carries the request values the DataStore rendering refers to.
type DatastoreQuery struct {
	ServerURL  string
	ResourceID string
	Offset     int
	Limit      int
}

// DatastoreSearch renders a datastore_search result as a field list and a
// bounded markdown table.
func DatastoreSearch(raw json.RawMessage, q DatastoreQuery) string {
	result := decodeObject(raw)
	fields := result.list("fields")
	records := result.list("records")
	total := result.int("total")

	var b strings.Builder
	b.WriteString("# DataStore Query Results\n\n")
	fmt.Fprintf(&b, "**Server**: %s\n", q.ServerURL)
	fmt.Fprintf(&b, "**Resource ID**: `%s`\n", q.ResourceID)
	fmt.Fprintf(&b, "**Total Records**: %d\n", total)
	fmt.Fprintf(&b, "**Returned**: %d records\n\n", len(records))

	if len(fields) > 0 {
		b.WriteString("## Fields\n\n")
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			field := asObject(f)
			lines = append(lines, fmt.Sprintf("- **%s** (%s)", field.str("id"), field.str("type")))
		}
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}

	if len(records) > 0 {
		b.WriteString("## Records\n\n")
		writeRecordTable(&b, columns(fields, records), records)
		if len(records) > maxTableRows {
			fmt.Fprintf(&b, "\n... and %d more records\n", len(records)-maxTableRows)
		}
		b.WriteString("\n")
	}

	if total > q.Offset+len(records) {
		fmt.Fprintf(&b, "**More results available**: Use `offset: %d` for next page.\n", q.Offset+q.Limit)
	}

	return Truncate(b.String())
}

// columns picks up to maxTableColumns column names from the field list, or
// from the first record's keys when the portal sent no field list.
func columns(fields, records []any) []string {
	var cols []string
	for _, f := range fields {
		cols = append(cols, asObject(f).str("id"))
	}
	if len(cols) == 0 && len(records) > 0 {
		for k := range asObject(records[0]) {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}
	if len(cols) > maxTableColumns {
		cols = cols[:maxTableColumns]
	}
	return cols
}

func writeRecordTable(b *strings.Builder, cols []string, records []any) {
	sep := make([]string, len(cols))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(cols, " | "))
	fmt.Fprintf(b, "| %s |\n", strings.Join(sep, " | "))

	for i, r := range records {
		if i == maxTableRows {
			break
		}
		rec := asObject(r)
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = cell(rec[c])
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
	}
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	s := text(v)
	if short, dropped := cut(s, maxCellLength); dropped {
		return prefix(short, maxCellLength-3) + "..."
	}
	return s
}
