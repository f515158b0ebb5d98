package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateValues_OverallFallbackAveragesEverything(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,10
"Anchorage, AK",2,20
`))

	lookup := AggregateValues(obs, "overall")

	require.Contains(t, lookup.ByName, "anchorage, ak")
	require.NotNil(t, lookup.ByName["anchorage, ak"])
	assert.Equal(t, 15.0, *lookup.ByName["anchorage, ak"])
}

func TestAggregateValues_PrefersExplicitOverallRows(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",overall,7
"Anchorage, AK",1,100
`))

	lookup := AggregateValues(obs, "overall")

	require.NotNil(t, lookup.ByName["anchorage, ak"])
	assert.Equal(t, 7.0, *lookup.ByName["anchorage, ak"])
}

func TestAggregateValues_SpecificCategory(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,0.5
"Anchorage, AK",1,1.5
"Anchorage, AK",2,9
"Boise, ID",2,3
`))

	lookup := AggregateValues(obs, "SDG-01")

	require.NotNil(t, lookup.ByName["anchorage, ak"])
	assert.Equal(t, 1.0, *lookup.ByName["anchorage, ak"])
	// Boise has no SDG-01 rows and no fallback applies, but the area
	// still gets its entry.
	require.Contains(t, lookup.ByName, "boise, id")
	assert.Nil(t, lookup.ByName["boise, id"])
}

func TestAggregateValues_NonFiniteValuesYieldNil(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,n/a
"Anchorage, AK",1,
`))

	lookup := AggregateValues(obs, "SDG-01")

	require.Contains(t, lookup.ByName, "anchorage, ak")
	assert.Nil(t, lookup.ByName["anchorage, ak"])
}

func TestAggregateValues_FiniteRowsOnlyInMean(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,4
"Anchorage, AK",1,bogus
"Anchorage, AK",1,8
`))

	lookup := AggregateValues(obs, "SDG-01")

	require.NotNil(t, lookup.ByName["anchorage, ak"])
	assert.Equal(t, 6.0, *lookup.ByName["anchorage, ak"])
}

func TestAggregateValues_CodeKeys(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq,geoid
"Anchorage, AK",1,10,
"Anchorage, AK",2,20,02020
"Boise, ID",1,3,
`))

	lookup := AggregateValues(obs, "overall")

	// First non-empty code in the group keys the same value.
	require.Contains(t, lookup.ByCode, "02020")
	require.NotNil(t, lookup.ByCode["02020"])
	assert.Equal(t, 15.0, *lookup.ByCode["02020"])
	// Boise carries no code and lands only in ByName.
	assert.Len(t, lookup.ByCode, 1)
	assert.Len(t, lookup.ByName, 2)
}

func TestAggregateValues_GroupsByCanonicalName(t *testing.T) {
	obs := NormalizeObservations(ParseCSV(`area_name,sdg,sdg_lq
"Anchorage, AK",1,10
"ANCHORAGE,  AK",1,20
`))

	lookup := AggregateValues(obs, "SDG-01")

	require.Len(t, lookup.ByName, 1)
	assert.Equal(t, 15.0, *lookup.ByName["anchorage, ak"])
}

func TestAggregateValues_Empty(t *testing.T) {
	lookup := AggregateValues(nil, "overall")

	assert.Empty(t, lookup.ByName)
	assert.Empty(t, lookup.ByCode)
}
