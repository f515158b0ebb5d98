package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/civicatlas/msa-atlas/internal/atlas"
	"github.com/civicatlas/msa-atlas/internal/fetcher"
	"github.com/rotisserie/eris"
)

// Loader resolves manifest entries into parsed tables and layers.
type Loader struct {
	fetcher fetcher.Fetcher
	man     *Manifest
	tmpDir  string
}

// NewLoader builds a Loader. tmpDir holds transient downloads (XLSX
// files have to touch disk before they can be opened); the OS temp
// directory is used when it is empty.
func NewLoader(f fetcher.Fetcher, man *Manifest, tmpDir string) *Loader {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Loader{fetcher: f, man: man, tmpDir: tmpDir}
}

// Years returns the indicator years the manifest names, ascending.
func (l *Loader) Years() []string {
	return l.man.YearList()
}

// HasYear reports whether the manifest names the given year.
func (l *Loader) HasYear(year string) bool {
	_, ok := l.man.Years[year]
	return ok
}

// HasLayer reports whether the manifest names the given layer.
func (l *Loader) HasLayer(name string) bool {
	_, ok := l.man.Layers[name]
	return ok
}

// Indicators loads the indicator table for one year.
func (l *Loader) Indicators(ctx context.Context, year string) (atlas.Table, error) {
	ref, ok := l.man.Years[year]
	if !ok {
		return atlas.Table{}, eris.Errorf("source: no indicator source for year %q", year)
	}
	tbl, err := l.loadTable(ctx, ref)
	if err != nil {
		return atlas.Table{}, eris.Wrapf(err, "source: indicators %s", year)
	}
	return tbl, nil
}

// Coordinates loads the metro coordinate table.
func (l *Loader) Coordinates(ctx context.Context) (atlas.Table, error) {
	tbl, err := l.loadTable(ctx, l.man.Coordinates)
	if err != nil {
		return atlas.Table{}, eris.Wrap(err, "source: coordinates")
	}
	return tbl, nil
}

// Crosswalk loads the delineation file and folds it into the
// metro title to county GEOID mapping.
func (l *Loader) Crosswalk(ctx context.Context) (map[string][]string, error) {
	if l.man.Crosswalk.URL == "" {
		return nil, eris.New("source: manifest names no crosswalk")
	}
	tbl, err := l.loadTable(ctx, l.man.Crosswalk)
	if err != nil {
		return nil, eris.Wrap(err, "source: crosswalk")
	}
	return atlas.BuildCrosswalk(tbl), nil
}

func (l *Loader) loadTable(ctx context.Context, ref Ref) (atlas.Table, error) {
	start := time.Now()

	var (
		tbl atlas.Table
		err error
	)
	switch format := ref.ResolvedFormat(); format {
	case "csv":
		tbl, err = l.loadCSV(ctx, ref.URL)
	case "json":
		tbl, err = l.loadJSON(ctx, ref.URL)
	case "xlsx":
		tbl, err = l.loadXLSX(ctx, ref)
	default:
		return atlas.Table{}, eris.Errorf("source: unsupported format %q", format)
	}
	if err != nil {
		return atlas.Table{}, err
	}

	zap.L().Debug("loaded table",
		zap.String("component", "source"),
		zap.String("url", ref.URL),
		zap.Int("rows", len(tbl.Rows)),
		zap.Duration("elapsed", time.Since(start)))
	return tbl, nil
}

func (l *Loader) loadCSV(ctx context.Context, url string) (atlas.Table, error) {
	body, err := l.fetcher.Download(ctx, url)
	if err != nil {
		return atlas.Table{}, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return atlas.Table{}, eris.Wrap(err, "read body")
	}
	return atlas.ParseCSV(string(data)), nil
}

func (l *Loader) loadJSON(ctx context.Context, url string) (atlas.Table, error) {
	body, err := l.fetcher.Download(ctx, url)
	if err != nil {
		return atlas.Table{}, err
	}
	defer body.Close() //nolint:errcheck

	recCh, errCh := fetcher.DecodeJSONArray[map[string]any](ctx, body)

	var tbl atlas.Table
	seen := map[string]bool{}
	for rec := range recCh {
		row := atlas.Row{}
		for k, v := range rec {
			row[k] = jsonValue(v)
			if !seen[k] {
				seen[k] = true
				tbl.Headers = append(tbl.Headers, k)
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	if err := <-errCh; err != nil {
		return atlas.Table{}, err
	}
	return tbl, nil
}

func (l *Loader) loadXLSX(ctx context.Context, ref Ref) (atlas.Table, error) {
	local := filepath.Join(l.tmpDir, fmt.Sprintf("atlas-%d-%s", time.Now().UnixNano(), filepath.Base(ref.URL)))
	if _, err := l.fetcher.DownloadToFile(ctx, ref.URL, local); err != nil {
		return atlas.Table{}, err
	}
	defer os.Remove(local) //nolint:errcheck

	rows, err := fetcher.ReadXLSX(local, fetcher.XLSXOptions{SheetName: ref.Sheet})
	if err != nil {
		return atlas.Table{}, err
	}
	if len(rows) == 0 {
		return atlas.Table{}, nil
	}

	tbl := atlas.Table{Headers: rows[0]}
	for _, cells := range rows[1:] {
		row := atlas.Row{}
		for i, h := range tbl.Headers {
			if i < len(cells) {
				row[h] = cells[i]
			} else {
				row[h] = ""
			}
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// jsonValue renders a decoded JSON value as the cell string the atlas
// parsers expect. Floats keep their shortest representation so integer
// codes do not grow a ".0" suffix.
func jsonValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
