package source

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/civicatlas/msa-atlas/internal/atlas"
)

// keyProps are the feature properties tried, in order, when a layer
// does not configure its own join key.
var keyProps = []string{"GEOID", "GEOID20", "GEOID10", "CBSAFP", "STATEFP", "STATE", "id"}

// nameProps are the feature properties tried for a display name.
var nameProps = []string{"NAME", "NAMELSAD", "BASENAME", "name"}

// fipsWidths maps code-bearing properties to their padded width, so a
// GEOID that arrives as the number 2020 still keys as "02020".
var fipsWidths = map[string]int{
	"GEOID":    5,
	"GEOID20":  5,
	"GEOID10":  5,
	"CBSAFP":   5,
	"COUNTYFP": 3,
	"STATEFP":  2,
	"STATE":    2,
}

// LayerFeature is one boundary feature indexed by its join key.
type LayerFeature struct {
	Key        string
	Name       string
	Geometry   geom.T
	Centroid   geom.Coord
	Properties map[string]any
}

// Layer is one parsed GeoJSON boundary layer. Raw keeps the exact
// bytes the source served so handlers can pass them through untouched.
type Layer struct {
	Name     string
	Raw      []byte
	Bounds   *geom.Bounds
	Features []LayerFeature

	byKey map[string]int
}

// Feature returns the feature indexed under key.
func (l *Layer) Feature(key string) (*LayerFeature, bool) {
	i, ok := l.byKey[key]
	if !ok {
		return nil, false
	}
	return &l.Features[i], true
}

// Keys returns every indexed join key, sorted.
func (l *Layer) Keys() []string {
	keys := make([]string, 0, len(l.byKey))
	for k := range l.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LayerNames returns the manifest's layer names, sorted.
func (l *Loader) LayerNames() []string {
	names := make([]string, 0, len(l.man.Layers))
	for n := range l.man.Layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Layer downloads and parses the named boundary layer.
func (l *Loader) Layer(ctx context.Context, name string) (*Layer, error) {
	ref, ok := l.man.Layers[name]
	if !ok {
		return nil, eris.Errorf("source: no layer named %q", name)
	}

	body, err := l.fetcher.Download(ctx, ref.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "source: layer %s", name)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: layer %s", name)
	}
	return ParseLayer(name, ref.Key, data)
}

// ParseLayer decodes a GeoJSON feature collection and indexes its
// features by join key. keyProp names the property carrying the key;
// when empty the usual census code properties are tried.
func ParseLayer(name, keyProp string, data []byte) (*Layer, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "source: parse layer %s", name)
	}

	layer := &Layer{
		Name:  name,
		Raw:   data,
		byKey: map[string]int{},
	}
	bounds := geom.NewBounds(geom.XY)
	skipped := 0

	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		key := featureKey(f, keyProp)
		if key == "" {
			skipped++
			continue
		}

		feat := LayerFeature{
			Key:        key,
			Name:       propString(f.Properties, nameProps...),
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
		if f.Geometry != nil && !f.Geometry.Empty() {
			b := f.Geometry.Bounds()
			feat.Centroid = geom.Coord{
				(b.Min(0) + b.Max(0)) / 2,
				(b.Min(1) + b.Max(1)) / 2,
			}
			bounds.Extend(f.Geometry)
		}

		layer.byKey[key] = len(layer.Features)
		layer.Features = append(layer.Features, feat)
	}

	if !bounds.IsEmpty() {
		layer.Bounds = bounds
	}
	if skipped > 0 {
		zap.L().Warn("layer features without a join key",
			zap.String("component", "source"),
			zap.String("layer", name),
			zap.Int("skipped", skipped))
	}
	return layer, nil
}

// featureKey resolves the join key for one feature.
func featureKey(f *geojson.Feature, keyProp string) string {
	if keyProp != "" {
		if s := codeString(keyProp, f.Properties[keyProp]); s != "" {
			return s
		}
		return strings.TrimSpace(f.ID)
	}
	for _, p := range keyProps {
		if s := codeString(p, f.Properties[p]); s != "" {
			return s
		}
	}
	return strings.TrimSpace(f.ID)
}

// codeString renders a key property value as a string, padding numeric
// FIPS-style codes back to their canonical width.
func codeString(prop string, v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		n := int(t)
		if float64(n) != t || n < 0 {
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
		if w, ok := fipsWidths[strings.ToUpper(prop)]; ok {
			return atlas.FormatFIPS(n, w)
		}
		return strconv.Itoa(n)
	default:
		return ""
	}
}

func propString(props map[string]any, names ...string) string {
	for _, n := range names {
		if s, ok := props[n].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
