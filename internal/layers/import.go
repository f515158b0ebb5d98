// Package layers converts census cartographic boundary shapefiles into
// the GeoJSON layer files the dashboard serves and the manifest points
// at.
package layers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/civicatlas/msa-atlas/internal/fetcher"
)

// ImportOptions names the shapefile source and how to index it.
type ImportOptions struct {
	// URL is a zipped shapefile bundle (http, https, ftp or local) or
	// a bare local .shp whose sidecars sit next to it.
	URL string

	// Key is the DBF field promoted to the GeoJSON feature id,
	// typically GEOID. Records missing it are skipped. Optional.
	Key string

	// Fields restricts which DBF fields become feature properties.
	// Empty keeps them all.
	Fields []string

	// OutPath is the GeoJSON file to write.
	OutPath string

	// WorkDir holds downloads and archive extractions.
	WorkDir string
}

// ImportResult summarizes one conversion.
type ImportResult struct {
	Features int    `json:"features"`
	Skipped  int    `json:"skipped"`
	OutPath  string `json:"out_path"`
	Bytes    int    `json:"bytes"`
}

// Import fetches a boundary shapefile, converts its records to GeoJSON
// features with their DBF attributes as properties, and writes a
// feature collection to OutPath.
func Import(ctx context.Context, f fetcher.Fetcher, opts ImportOptions) (*ImportResult, error) {
	if opts.OutPath == "" {
		return nil, eris.New("layers: no output path")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	start := time.Now()

	shpPath, err := resolveShapefile(ctx, f, opts.URL, opts.WorkDir)
	if err != nil {
		return nil, err
	}

	fc, skipped, err := readShapefile(shpPath, opts.Key, opts.Fields)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "layers: encode feature collection")
	}
	if err := os.WriteFile(opts.OutPath, data, 0o644); err != nil {
		return nil, eris.Wrapf(err, "layers: write %s", opts.OutPath)
	}

	res := &ImportResult{
		Features: len(fc.Features),
		Skipped:  skipped,
		OutPath:  opts.OutPath,
		Bytes:    len(data),
	}
	zap.L().Info("layer imported",
		zap.String("component", "layers"),
		zap.String("source", opts.URL),
		zap.String("out", opts.OutPath),
		zap.Int("features", res.Features),
		zap.Int("skipped", res.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// resolveShapefile turns the source reference into a local .shp path,
// downloading and unpacking as needed. Remote sources must be zipped
// bundles; a bare .shp is only usable in place, where its .dbf and .shx
// sidecars already sit.
func resolveShapefile(ctx context.Context, f fetcher.Fetcher, rawURL, workDir string) (string, error) {
	src := strings.TrimPrefix(rawURL, "file://")
	remote := strings.Contains(src, "://")

	switch {
	case strings.HasSuffix(strings.ToLower(src), ".shp"):
		if remote {
			return "", eris.Errorf("layers: remote shapefile %q must be a .zip bundle", rawURL)
		}
		return src, nil

	case strings.HasSuffix(strings.ToLower(src), ".zip"):
		local := src
		if remote {
			local = filepath.Join(workDir, filepath.Base(src))
			if _, err := f.DownloadToFile(ctx, src, local); err != nil {
				return "", eris.Wrapf(err, "layers: download %s", rawURL)
			}
		}

		destDir := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(local), ".zip"))
		files, err := fetcher.ExtractZIP(local, destDir)
		if err != nil {
			return "", err
		}
		for _, path := range files {
			if strings.HasSuffix(strings.ToLower(path), ".shp") {
				return path, nil
			}
		}
		return "", eris.Errorf("layers: archive %s contains no .shp", filepath.Base(local))

	default:
		return "", eris.Errorf("layers: unsupported source %q", rawURL)
	}
}

// readShapefile converts every usable shapefile record to a GeoJSON
// feature. Records with no convertible geometry, or missing the key
// field when one is configured, are skipped and counted.
func readShapefile(path, key string, fields []string) (*geojson.FeatureCollection, int, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "layers: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	// DBF field names arrive NUL-padded.
	names := make([]string, len(reader.Fields()))
	for i, fld := range reader.Fields() {
		names[i] = strings.TrimRight(fld.String(), "\x00")
	}

	keep := map[string]bool{}
	for _, f := range fields {
		keep[strings.ToLower(f)] = true
	}

	fc := &geojson.FeatureCollection{}
	skipped := 0

	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeGeometry(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(names))
		id := ""
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				continue
			}
			if key != "" && strings.EqualFold(name, key) {
				id = val
			}
			if len(keep) > 0 && !keep[strings.ToLower(name)] {
				continue
			}
			props[name] = val
		}
		if key != "" && id == "" {
			skipped++
			continue
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         id,
			Geometry:   g,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("component", "layers"),
			zap.String("shapefile", filepath.Base(path)),
			zap.Int("skipped", skipped))
	}
	return fc, skipped, nil
}

// shapeGeometry converts a go-shp shape to a geom geometry in SRID
// 4326. Unsupported and degenerate shapes convert to nil.
func shapeGeometry(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}).SetSRID(4326)
	case *shp.PolyLine:
		return polylineGeometry(s)
	case *shp.Polygon:
		return polygonGeometry(s)
	default:
		return nil
	}
}

func polylineGeometry(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(4326)
	for i := 0; i < int(pl.NumParts); i++ {
		flat := partCoords(pl.Points, pl.Parts, i)
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func polygonGeometry(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := 0; i < int(p.NumParts); i++ {
		flat := partCoords(p.Points, p.Parts, i)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("skipping malformed polygon ring", zap.Int("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partCoords flattens one part's coordinate run for go-geom.
func partCoords(points []shp.Point, parts []int32, i int) []float64 {
	start := parts[i]
	end := int32(len(points))
	if i+1 < len(parts) {
		end = parts[i+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, points[j].X, points[j].Y)
	}
	return flat
}
