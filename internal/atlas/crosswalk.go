package atlas

import (
	"sort"
	"strings"
)

// Column aliases seen across census delineation file vintages. When a
// table carries none of the named aliases the builder falls back to
// position: title, state FIPS and county FIPS in the first three
// columns. An empty value in a present column never falls back; the row
// is simply skipped.
var (
	crosswalkTitleCols  = []string{"CBSA Title", "Metropolitan/Micropolitan Statistical Area", "Title"}
	crosswalkStateCols  = []string{"FIPS State Code", "State FIPS", "state_fips", "fips_state"}
	crosswalkCountyCols = []string{"FIPS County Code", "County FIPS", "county_fips", "fips_cty"}
)

// BuildCrosswalk maps each MSA title in a delineation table to the
// sorted, deduplicated 5-digit county GEOIDs it spans. Rows missing a
// title or either FIPS code are skipped; a literal "0" FIPS value is a
// real code, not a missing one, and zero-pads like any other.
func BuildCrosswalk(tbl Table) map[string][]string {
	titleCol := columnResolver(tbl.Headers, crosswalkTitleCols, 0)
	stateCol := columnResolver(tbl.Headers, crosswalkStateCols, 1)
	countyCol := columnResolver(tbl.Headers, crosswalkCountyCols, 2)

	byTitle := make(map[string]map[string]struct{})
	for _, row := range tbl.Rows {
		title := Unquote(titleCol(row))
		if title == "" {
			continue
		}
		geoid := CombineFIPS(stateCol(row), countyCol(row))
		if geoid == "" {
			continue
		}
		set, ok := byTitle[title]
		if !ok {
			set = make(map[string]struct{})
			byTitle[title] = set
		}
		set[geoid] = struct{}{}
	}

	out := make(map[string][]string, len(byTitle))
	for title, set := range byTitle {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out[title] = ids
	}
	return out
}

// columnResolver returns an accessor for the first alias present in the
// header, or a positional accessor when the table carries none of them.
func columnResolver(headers []string, names []string, pos int) func(Row) string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, name := range names {
		if _, ok := present[strings.ToLower(name)]; ok {
			aliases := names
			return func(row Row) string { return Pick(row, aliases...) }
		}
	}
	return func(row Row) string {
		if pos >= len(headers) {
			return ""
		}
		return strings.TrimSpace(row[headers[pos]])
	}
}
