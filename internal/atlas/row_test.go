package atlas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	row := Row{
		"Metro":    "Anchorage",
		"state_id": "AK",
		"LAT":      "61.2",
		"empty":    "",
		"blank":    "   ",
	}

	// Exact, lowercased and uppercased variants of each candidate.
	assert.Equal(t, "Anchorage", Pick(row, "metro"))
	assert.Equal(t, "AK", Pick(row, "STATE_ID"))
	assert.Equal(t, "61.2", Pick(row, "lat"))

	// First candidate with a non-empty value wins.
	assert.Equal(t, "Anchorage", Pick(row, "empty", "blank", "metro"))
	assert.Equal(t, "", Pick(row, "empty", "blank"))
	assert.Equal(t, "", Pick(row, "missing"))
	assert.Equal(t, "", Pick(row))
}

func TestParseFloat64Or(t *testing.T) {
	assert.Equal(t, 0.52, parseFloat64Or("0.52", math.NaN()))
	assert.Equal(t, -3.0, parseFloat64Or(" -3 ", 0))
	assert.True(t, math.IsNaN(parseFloat64Or("", math.NaN())))
	assert.True(t, math.IsNaN(parseFloat64Or("n/a", math.NaN())))
	assert.Equal(t, 7.0, parseFloat64Or("bogus", 7))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, isFinite(0))
	assert.True(t, isFinite(-12.5))
	assert.False(t, isFinite(math.NaN()))
	assert.False(t, isFinite(math.Inf(1)))
	assert.False(t, isFinite(math.Inf(-1)))
}
