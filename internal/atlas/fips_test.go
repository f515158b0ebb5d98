package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFIPSState(t *testing.T) {
	assert.Equal(t, "02", NormalizeFIPSState("2"))
	assert.Equal(t, "06", NormalizeFIPSState("06"))
	assert.Equal(t, "36", NormalizeFIPSState(" 36 "))
	assert.Equal(t, "00", NormalizeFIPSState("0"))
	assert.Equal(t, "", NormalizeFIPSState(""))
}

func TestNormalizeFIPSCounty(t *testing.T) {
	assert.Equal(t, "020", NormalizeFIPSCounty("20"))
	assert.Equal(t, "001", NormalizeFIPSCounty("1"))
	assert.Equal(t, "170", NormalizeFIPSCounty("170"))
	assert.Equal(t, "000", NormalizeFIPSCounty("0"))
	assert.Equal(t, "", NormalizeFIPSCounty(""))
}

func TestCombineFIPS(t *testing.T) {
	assert.Equal(t, "02020", CombineFIPS("2", "20"))
	assert.Equal(t, "02170", CombineFIPS("2", "170"))
	assert.Equal(t, "06037", CombineFIPS("6", "37"))
	// Either part missing means no GEOID at all.
	assert.Equal(t, "", CombineFIPS("", "037"))
	assert.Equal(t, "", CombineFIPS("06", ""))
	// Zero is a value, not an absence.
	assert.Equal(t, "00000", CombineFIPS("0", "0"))
}

func TestFormatFIPS(t *testing.T) {
	assert.Equal(t, "06", FormatFIPS(6, 2))
	assert.Equal(t, "037", FormatFIPS(37, 3))
	assert.Equal(t, "02020", FormatFIPS(2020, 5))
}
