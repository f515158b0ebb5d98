// Package source loads the dashboard's static inputs (indicator tables,
// metro coordinates, delineation crosswalk, boundary layers) from the
// locations a YAML manifest names, and turns them into the atlas
// package's structures.
package source

import (
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Ref points at one tabular source file.
type Ref struct {
	URL    string `yaml:"url"`
	Format string `yaml:"format,omitempty"` // csv, json or xlsx; inferred from the URL when empty
	Sheet  string `yaml:"sheet,omitempty"`  // xlsx sheet name, first sheet when empty
}

// LayerRef points at one GeoJSON boundary layer.
type LayerRef struct {
	URL string `yaml:"url"`
	Key string `yaml:"key,omitempty"` // feature property carrying the join key
}

// Manifest names every source file the dashboard loads.
type Manifest struct {
	Coordinates Ref                 `yaml:"coordinates"`
	Crosswalk   Ref                 `yaml:"crosswalk"`
	Years       map[string]Ref      `yaml:"years"`
	Layers      map[string]LayerRef `yaml:"layers"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "source: parse manifest %s", path)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest names the inputs the dashboard
// cannot run without.
func (m *Manifest) Validate() error {
	if m.Coordinates.URL == "" {
		return eris.New("source: manifest missing coordinates.url")
	}
	if len(m.Years) == 0 {
		return eris.New("source: manifest names no indicator years")
	}
	for year, ref := range m.Years {
		if ref.URL == "" {
			return eris.Errorf("source: year %q has no url", year)
		}
		if f := ref.ResolvedFormat(); f != "csv" && f != "json" && f != "xlsx" {
			return eris.Errorf("source: year %q has unsupported format %q", year, f)
		}
	}
	for name, ref := range m.Layers {
		if ref.URL == "" {
			return eris.Errorf("source: layer %q has no url", name)
		}
	}
	return nil
}

// YearList returns the configured years in ascending order.
func (m *Manifest) YearList() []string {
	years := make([]string, 0, len(m.Years))
	for y := range m.Years {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

// ResolvedFormat returns the explicit format, or one inferred from the
// URL's extension. CSV is the default for everything unrecognized.
func (r Ref) ResolvedFormat() string {
	if r.Format != "" {
		return strings.ToLower(r.Format)
	}
	u := r.URL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	switch strings.ToLower(path.Ext(u)) {
	case ".json":
		return "json"
	case ".xlsx":
		return "xlsx"
	default:
		return "csv"
	}
}
