package atlas

import (
	"math"
	"strings"
)

// Column aliases for the two dashboard tables. Indicator files and
// coordinate files come from different vendors and rarely agree on
// naming.
var (
	obsAreaCols     = []string{"area_name", "metro", "metro_name", "name", "area"}
	obsCategoryCols = []string{"sdg", "sdg_code", "goal", "category"}
	obsValueCols    = []string{"sdg_lq", "lq", "value", "score"}
	obsCodeCols     = []string{"geoid", "fips", "state_num", "code"}

	coordNameCols  = []string{"metro", "metro_name", "name", "city"}
	coordStateCols = []string{"state_id", "state", "st"}
	coordLatCols   = []string{"lat", "latitude"}
	coordLngCols   = []string{"lng", "lon", "long", "longitude"}
)

// GeoPoint is one usable coordinate-table entry.
type GeoPoint struct {
	Name string
	Area AreaName
	Lat  float64
	Lng  float64
}

// PointIndex resolves normalized area names to coordinates. It is built
// once per coordinate table and read concurrently by joins.
type PointIndex struct {
	direct map[string]GeoPoint
	byCity map[string][]GeoPoint
}

// Len reports how many exact keys the index holds.
func (idx *PointIndex) Len() int {
	return len(idx.direct)
}

// BuildPointIndex indexes a coordinate table twice: by exact
// "{city}|{state}" key and by bare city for the ambiguity-checked
// fallback. Rows without a usable name or with non-finite coordinates
// are dropped. Duplicate exact keys keep the last row, matching a
// wholesale rebuild of the source table.
func BuildPointIndex(tbl Table) *PointIndex {
	idx := &PointIndex{
		direct: make(map[string]GeoPoint, len(tbl.Rows)),
		byCity: make(map[string][]GeoPoint),
	}
	for _, row := range tbl.Rows {
		name := Pick(row, coordNameCols...)
		area := NormalizeMetroName(name, Pick(row, coordStateCols...))
		if area.City == "" {
			continue
		}
		lat := parseFloat64Or(Pick(row, coordLatCols...), math.NaN())
		lng := parseFloat64Or(Pick(row, coordLngCols...), math.NaN())
		if !isFinite(lat) || !isFinite(lng) {
			continue
		}
		pt := GeoPoint{Name: Unquote(name), Area: area, Lat: lat, Lng: lng}
		idx.direct[area.Key()] = pt
		idx.byCity[area.City] = append(idx.byCity[area.City], pt)
	}
	return idx
}

// Lookup resolves an area to coordinates. Exact key first; a row that
// names no state of its own may fall back to a city-only match when that
// match is unambiguous (a single candidate, or several that all sit in
// one state, in which case the first wins). A row that names a state but
// misses the exact key never falls back.
func (idx *PointIndex) Lookup(area AreaName) (GeoPoint, bool) {
	if pt, ok := idx.direct[area.Key()]; ok {
		return pt, true
	}
	if area.State != "" {
		return GeoPoint{}, false
	}
	cands := idx.byCity[area.City]
	if len(cands) == 1 || (len(cands) > 1 && sameState(cands)) {
		return cands[0], true
	}
	return GeoPoint{}, false
}

func sameState(pts []GeoPoint) bool {
	for _, p := range pts[1:] {
		if p.Area.State != pts[0].Area.State {
			return false
		}
	}
	return true
}

// Observation is one indicator-table row after identifier
// normalization. AreaName keeps the source text (unquoted) for display;
// Value is NaN when the source field was missing or unparsable; Code is
// the row's geographic code when the table carries one.
type Observation struct {
	AreaName string
	Area     AreaName
	Category string
	Value    float64
	Code     string
}

// NormalizeObservations converts raw indicator rows into observations.
// Rows without any area name are unusable by every consumer and are
// dropped here.
func NormalizeObservations(tbl Table) []Observation {
	obs := make([]Observation, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		raw := Pick(row, obsAreaCols...)
		if raw == "" {
			continue
		}
		obs = append(obs, Observation{
			AreaName: Unquote(raw),
			Area:     NormalizeAreaName(raw),
			Category: NormalizeSDG(Pick(row, obsCategoryCols...)),
			Value:    parseFloat64Or(Pick(row, obsValueCols...), math.NaN()),
			Code:     strings.TrimSpace(Pick(row, obsCodeCols...)),
		})
	}
	return obs
}

// Point is a joined, plottable observation. Value is always finite.
type Point struct {
	AreaName string  `json:"area_name"`
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// JoinReport records what a join run did and what it could not place.
// Unmatched rows are a data-quality signal, never an error.
type JoinReport struct {
	Total        int      `json:"total"`
	Matched      int      `json:"matched"`
	DroppedValue int      `json:"dropped_value"`
	Unmatched    []string `json:"unmatched,omitempty"`
}

// JoinPoints joins observations in the requested category against the
// point index. Input order is preserved and repeated areas are emitted
// repeatedly; CategoryOverall keeps every row. Matched rows whose value
// is not finite are dropped and counted apart from unmatched ones.
func JoinPoints(obs []Observation, idx *PointIndex, category string) ([]Point, *JoinReport) {
	want := NormalizeSDG(category)
	report := &JoinReport{}
	points := make([]Point, 0, len(obs))
	for _, o := range obs {
		if want != CategoryOverall && o.Category != want {
			continue
		}
		report.Total++
		pt, ok := idx.Lookup(o.Area)
		if !ok {
			report.Unmatched = append(report.Unmatched, o.AreaName)
			continue
		}
		if !isFinite(o.Value) {
			report.DroppedValue++
			continue
		}
		report.Matched++
		points = append(points, Point{
			AreaName: o.AreaName,
			Category: o.Category,
			Value:    o.Value,
			Lat:      pt.Lat,
			Lng:      pt.Lng,
		})
	}
	return points, report
}
