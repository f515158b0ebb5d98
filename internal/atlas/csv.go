package atlas

import "strings"

// ParseCSV parses raw CSV text into a header-keyed Table. The first
// non-blank line is the header; every other non-blank line becomes a Row
// with exactly one entry per header column. Missing trailing fields map
// to ""; fields beyond the header are ignored. ParseCSV never fails:
// empty or header-only input yields a Table with zero rows.
//
// The splitter understands double-quoted fields and "" escapes but is
// deliberately not a general CSV reader: no multi-line fields, no
// alternate delimiters. Dashboard inputs are single-line records; bulk
// well-formed feeds go through fetcher.StreamCSV instead.
func ParseCSV(text string) Table {
	var tbl Table
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitCSVLine(line)
		if tbl.Headers == nil {
			tbl.Headers = fields
			continue
		}
		row := make(Row, len(tbl.Headers))
		for i, h := range tbl.Headers {
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

// splitCSVLine splits one CSV line on commas, honoring double-quoted
// fields. Inside quotes a doubled quote is a literal one. Fields are
// trimmed of surrounding whitespace; the enclosing quotes themselves are
// never part of the value.
func splitCSVLine(line string) []string {
	var (
		fields   []string
		b        strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(b.String()))
}
