package atlas

// ValueLookup holds per-area mean indicator values keyed two ways: by
// canonical area name and, for areas whose rows carry a geographic code,
// by that code. Nil marks an area whose selected rows had no finite
// value; the key still exists so consumers can tell "no data" from
// "unknown area".
type ValueLookup struct {
	ByName map[string]*float64 `json:"values_by_name"`
	ByCode map[string]*float64 `json:"values_by_code"`
}

// AggregateValues groups observations by canonical area name and
// computes the arithmetic mean of finite values in the requested
// category. For CategoryOverall, rows explicitly labeled overall are
// preferred; an area with none falls back to the mean across all of its
// rows. Specific categories never fall back. Every group yields exactly
// one ByName entry.
func AggregateValues(obs []Observation, category string) ValueLookup {
	want := NormalizeSDG(category)

	groups := make(map[string][]Observation)
	for _, o := range obs {
		key := clean(o.AreaName)
		groups[key] = append(groups[key], o)
	}

	lookup := ValueLookup{
		ByName: make(map[string]*float64, len(groups)),
		ByCode: make(map[string]*float64),
	}
	for key, rows := range groups {
		selected := filterCategory(rows, want)
		if want == CategoryOverall && len(selected) == 0 {
			// No explicitly-overall row: average whatever the area has.
			selected = rows
		}
		val := meanFinite(selected)
		lookup.ByName[key] = val
		if code := firstCode(rows); code != "" {
			lookup.ByCode[code] = val
		}
	}
	return lookup
}

func filterCategory(obs []Observation, want string) []Observation {
	var out []Observation
	for _, o := range obs {
		if o.Category == want {
			out = append(out, o)
		}
	}
	return out
}

// meanFinite averages the finite values in obs, nil when there are none.
func meanFinite(obs []Observation) *float64 {
	var (
		sum float64
		n   int
	)
	for _, o := range obs {
		if isFinite(o.Value) {
			sum += o.Value
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// firstCode returns the first non-empty geographic code in the group.
func firstCode(obs []Observation) string {
	for _, o := range obs {
		if o.Code != "" {
			return o.Code
		}
	}
	return ""
}
