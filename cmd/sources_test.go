//go:build !integration

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/civicatlas/msa-atlas/internal/fetcher"
	"github.com/civicatlas/msa-atlas/internal/source"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProbeTabular_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "ind.csv",
		"area,value\nAnchorage,0.52\nBoise City,0.61\nNowhere,0.4\n")

	rows, err := probeTabular(context.Background(), fetcher.New(fetcher.Options{}), source.Ref{URL: path}, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
}

func TestProbeTabular_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "ind.json",
		`[{"area":"Anchorage","value":0.52},{"area":"Boise City","value":0.61}]`)

	rows, err := probeTabular(context.Background(), fetcher.New(fetcher.Options{}), source.Ref{URL: path}, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestProbeTabular_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coords.xlsx")

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Metros")
	require.NoError(t, err)
	for _, cells := range [][]string{
		{"city", "state_id", "lat", "lng"},
		{"Anchorage", "AK", "61.2", "-149.9"},
		{"Boise City", "ID", "43.6", "-116.2"},
	} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	require.NoError(t, file.Save(path))

	rows, err := probeTabular(context.Background(), fetcher.New(fetcher.Options{}),
		source.Ref{URL: path, Format: "xlsx", Sheet: "Metros"}, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
}

func TestProbeTabular_MissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := probeTabular(context.Background(), fetcher.New(fetcher.Options{}),
		source.Ref{URL: filepath.Join(dir, "absent.csv")}, dir)
	assert.Error(t, err)
}

func TestProbeLayer(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "county.geojson", cmdLayerJSON)

	features, err := probeLayer(context.Background(), fetcher.New(fetcher.Options{}),
		"county", source.LayerRef{URL: path})
	require.NoError(t, err)
	assert.Equal(t, 1, features)
}

func TestProbeLayer_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "broken.geojson", "{not geojson")

	_, err := probeLayer(context.Background(), fetcher.New(fetcher.Options{}),
		"broken", source.LayerRef{URL: path})
	assert.Error(t, err)
}

func TestProbeAll(t *testing.T) {
	dir := t.TempDir()
	coords := writeFixture(t, dir, "coords.csv",
		"city,state_id,lat,lng\nAnchorage,AK,61.2,-149.9\nBoise City,ID,43.6,-116.2\n")
	cw := writeFixture(t, dir, "cw.csv",
		"CBSA Title,FIPS State Code,FIPS County Code\n\"Anchorage, AK\",2,20\n")
	ind := writeFixture(t, dir, "ind2021.csv",
		"area,value\nAnchorage,0.52\n")
	layer := writeFixture(t, dir, "county.geojson", cmdLayerJSON)

	man := &source.Manifest{
		Coordinates: source.Ref{URL: coords},
		Crosswalk:   source.Ref{URL: cw},
		Years: map[string]source.Ref{
			"2021": {URL: ind},
			"2022": {URL: filepath.Join(dir, "gone.csv")},
		},
		Layers: map[string]source.LayerRef{"county": {URL: layer}},
	}

	results := probeAll(context.Background(), fetcher.New(fetcher.Options{}), man, dir)
	require.Len(t, results, 5)

	kinds := make([]string, len(results))
	for i, r := range results {
		kinds[i] = r.Kind + "/" + r.Name
	}
	assert.Equal(t, []string{"coordinates/-", "crosswalk/-", "indicators/2021", "indicators/2022", "layer/county"}, kinds)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].Rows)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Rows)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, results[2].Rows)
	assert.Error(t, results[3].Err)
	assert.NoError(t, results[4].Err)
	assert.Equal(t, 1, results[4].Rows)
}

func TestFormatSources(t *testing.T) {
	man := &source.Manifest{
		Coordinates: source.Ref{URL: "https://example.com/coords.csv"},
		Crosswalk:   source.Ref{URL: "https://example.com/delineation.xlsx", Format: "xlsx"},
		Years: map[string]source.Ref{
			"2021": {URL: "https://example.com/2021.csv"},
			"2022": {URL: "https://example.com/2022.json"},
		},
		Layers: map[string]source.LayerRef{"county": {URL: "https://example.com/county.geojson"}},
	}

	var buf bytes.Buffer
	formatSources(&buf, man)

	output := buf.String()
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "coordinates")
	assert.Contains(t, output, "crosswalk")
	assert.Contains(t, output, "xlsx")
	assert.Contains(t, output, "indicators")
	assert.Contains(t, output, "2021")
	assert.Contains(t, output, "2022")
	assert.Contains(t, output, "json")
	assert.Contains(t, output, "layer")
	assert.Contains(t, output, "county")

	// Years print in sorted order.
	assert.Less(t, strings.Index(output, "2021.csv"), strings.Index(output, "2022.json"))
}

func TestFormatSources_NoCrosswalk(t *testing.T) {
	man := &source.Manifest{
		Coordinates: source.Ref{URL: "https://example.com/coords.csv"},
		Years:       map[string]source.Ref{"2021": {URL: "https://example.com/2021.csv"}},
	}

	var buf bytes.Buffer
	formatSources(&buf, man)

	assert.NotContains(t, buf.String(), "crosswalk")
}

func TestFormatProbeResults(t *testing.T) {
	results := []probeResult{
		{Kind: "coordinates", Name: "-", Rows: 934, Elapsed: 120 * time.Millisecond},
		{Kind: "indicators", Name: "2022", Err: eris.New("fetch https://example.com/2022.csv: status 404 after this very long explanation keeps going and going")},
	}

	var buf bytes.Buffer
	formatProbeResults(&buf, results)

	output := buf.String()
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "934")
	assert.Contains(t, output, "ok")
	assert.Contains(t, output, "status 404")
	assert.Contains(t, output, "...")
}
