// Package atlas reconciles messy tabular inputs into the joined,
// aggregated structures the metro dashboard consumes. Everything here is
// pure computation: parsing, identifier normalization, crosswalk and
// point-join building. I/O lives in internal/source and internal/fetcher.
package atlas

import (
	"math"
	"strconv"
	"strings"
)

// Row is a single parsed record keyed by header name.
type Row map[string]string

// Table is a parsed tabular input: rows in source order plus the header
// order they were parsed with. Header order matters for positional
// fallbacks in the crosswalk builder.
type Table struct {
	Headers []string
	Rows    []Row
}

// Pick returns the first non-empty value among the named columns. Each
// candidate is tried as written, then lowercased, then uppercased, so
// callers can list aliases once without worrying about source casing.
func Pick(row Row, names ...string) string {
	for _, name := range names {
		for _, key := range [3]string{name, strings.ToLower(name), strings.ToUpper(name)} {
			if v, ok := row[key]; ok {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// parseFloat64Or parses a string as a float64, returning def if parsing
// fails or the string is empty.
func parseFloat64Or(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// isFinite reports whether f is a real number (not NaN or ±Inf).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
