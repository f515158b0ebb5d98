package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indicatorRecord struct {
	AreaName string  `json:"area_name"`
	SDG      string  `json:"sdg"`
	Value    float64 `json:"sdg_lq"`
}

func TestDecodeJSONArray(t *testing.T) {
	input := `[
		{"area_name": "Anchorage, AK", "sdg": "SDG-01", "sdg_lq": 0.52},
		{"area_name": "Boise, ID", "sdg": "SDG-01", "sdg_lq": 1.2}
	]`

	outCh, errCh := DecodeJSONArray[indicatorRecord](context.Background(), strings.NewReader(input))

	var records []indicatorRecord
	for rec := range outCh {
		records = append(records, rec)
	}
	require.NoError(t, <-errCh)

	require.Len(t, records, 2)
	assert.Equal(t, "Anchorage, AK", records[0].AreaName)
	assert.Equal(t, 1.2, records[1].Value)
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	outCh, errCh := DecodeJSONArray[indicatorRecord](context.Background(), strings.NewReader("[]"))

	var count int
	for range outCh {
		count++
	}
	require.NoError(t, <-errCh)
	assert.Zero(t, count)
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	outCh, errCh := DecodeJSONArray[indicatorRecord](context.Background(), strings.NewReader(`{"a":1}`))

	for range outCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestDecodeJSONArray_MalformedElement(t *testing.T) {
	outCh, errCh := DecodeJSONArray[indicatorRecord](context.Background(), strings.NewReader(`[{"area_name": }]`))

	for range outCh {
	}
	assert.Error(t, <-errCh)
}

func TestDecodeJSONObject(t *testing.T) {
	obj, err := DecodeJSONObject[indicatorRecord](strings.NewReader(`{"area_name": "Anchorage, AK", "sdg_lq": 0.52}`))
	require.NoError(t, err)
	assert.Equal(t, "Anchorage, AK", obj.AreaName)
	assert.Equal(t, 0.52, obj.Value)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[indicatorRecord](strings.NewReader(`not json`))
	assert.Error(t, err)
}
