package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordsFixture(t *testing.T) *PointIndex {
	t.Helper()
	tbl := ParseCSV(`metro,state_id,lat,lng
Anchorage,AK,61.2,-149.9
Portland,OR,45.5,-122.7
Portland,ME,43.7,-70.3
Boise,ID,43.6,-116.2
Springfield,IL,39.8,-89.6
Springfield,MO,37.2,-93.3
`)
	return BuildPointIndex(tbl)
}

func TestBuildPointIndex_SkipsUnusableRows(t *testing.T) {
	tbl := ParseCSV(`metro,state_id,lat,lng
,AK,61.2,-149.9
Nowhere,XX,not-a-number,-1
Nowhere2,XX,1,
Kept,AK,60,-150
`)
	idx := BuildPointIndex(tbl)

	assert.Equal(t, 1, idx.Len())
	_, ok := idx.Lookup(AreaName{City: "kept", State: "ak"})
	assert.True(t, ok)
}

func TestPointIndexLookup(t *testing.T) {
	idx := coordsFixture(t)

	tests := []struct {
		name    string
		area    AreaName
		wantLat float64
		wantOK  bool
	}{
		{"exact city and state", AreaName{City: "anchorage", State: "ak"}, 61.2, true},
		{"stateless unique city", AreaName{City: "boise"}, 43.6, true},
		{"stateless ambiguous city", AreaName{City: "portland"}, 0, false},
		{"named state misses, no fallback", AreaName{City: "boise", State: "mt"}, 0, false},
		{"unknown city", AreaName{City: "atlantis"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, ok := idx.Lookup(tt.area)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantLat, pt.Lat)
			}
		})
	}
}

func TestPointIndexLookup_SameStateCandidatesUseFirst(t *testing.T) {
	tbl := ParseCSV(`metro,state_id,lat,lng
Greenville,SC,34.8,-82.4
Greenville,SC,34.9,-82.2
`)
	idx := BuildPointIndex(tbl)

	pt, ok := idx.Lookup(AreaName{City: "greenville"})
	require.True(t, ok)
	assert.Equal(t, 34.8, pt.Lat)
}

func TestNormalizeObservations(t *testing.T) {
	tbl := ParseCSV(`area_name,sdg,sdg_lq,geoid
"Anchorage, AK",1,0.52,02020
"Boise, ID",overall,1.1,
,3,9.9,
"No Value, TX",2,,
`)
	obs := NormalizeObservations(tbl)

	require.Len(t, obs, 3) // the row with no area name is dropped
	assert.Equal(t, "Anchorage, AK", obs[0].AreaName)
	assert.Equal(t, AreaName{City: "anchorage", State: "ak"}, obs[0].Area)
	assert.Equal(t, "SDG-01", obs[0].Category)
	assert.Equal(t, 0.52, obs[0].Value)
	assert.Equal(t, "02020", obs[0].Code)
	assert.Equal(t, "overall", obs[1].Category)
	assert.False(t, isFinite(obs[2].Value))
}

func TestJoinPoints(t *testing.T) {
	idx := coordsFixture(t)
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,0.52
"Anchorage, AK",2,0.61
Boise,1,1.2
"Lost City, ZZ",1,0.9
`))

	points, report := JoinPoints(obs, idx, "SDG-01")

	require.Len(t, points, 2)
	assert.Equal(t, Point{AreaName: "Anchorage, AK", Category: "SDG-01", Value: 0.52, Lat: 61.2, Lng: -149.9}, points[0])
	assert.Equal(t, "Boise", points[1].AreaName)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, []string{"Lost City, ZZ"}, report.Unmatched)
	assert.Zero(t, report.DroppedValue)
}

func TestJoinPoints_OverallKeepsAllCategories(t *testing.T) {
	idx := coordsFixture(t)
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,0.52
"Anchorage, AK",2,0.61
`))

	points, report := JoinPoints(obs, idx, "overall")

	assert.Len(t, points, 2)
	assert.Equal(t, 2, report.Matched)
}

func TestJoinPoints_RequestedCategoryIsNormalized(t *testing.T) {
	idx := coordsFixture(t)
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",sdg-01,0.52
`))

	points, _ := JoinPoints(obs, idx, "1")

	require.Len(t, points, 1)
	assert.Equal(t, "SDG-01", points[0].Category)
}

func TestJoinPoints_DropsNonFiniteValues(t *testing.T) {
	idx := coordsFixture(t)
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,not-a-number
"Boise, ID",1,1.2
`))

	points, report := JoinPoints(obs, idx, "SDG-01")

	require.Len(t, points, 1)
	assert.Equal(t, "Boise, ID", points[0].AreaName)
	assert.Equal(t, 1, report.DroppedValue)
	assert.Equal(t, 1, report.Matched)
	assert.Empty(t, report.Unmatched)
}

func TestJoinPoints_PreservesInputOrderAndDuplicates(t *testing.T) {
	idx := coordsFixture(t)
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Boise, ID",1,1.0
"Anchorage, AK",1,2.0
"Boise, ID",1,3.0
`))

	points, _ := JoinPoints(obs, idx, "SDG-01")

	require.Len(t, points, 3)
	assert.Equal(t, []float64{1.0, 2.0, 3.0}, []float64{points[0].Value, points[1].Value, points[2].Value})
}
