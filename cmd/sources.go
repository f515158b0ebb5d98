package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicatlas/msa-atlas/internal/fetcher"
	"github.com/civicatlas/msa-atlas/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured data sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("query"); err != nil {
			return err
		}

		man, err := source.LoadManifest(cfg.Data.Manifest)
		if err != nil {
			return err
		}

		formatSources(os.Stdout, man)
		return nil
	},
}

var sourcesProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fetch every configured source and report row counts",
	Long:  "Downloads each source in the manifest, counts its records, and reports failures without loading anything into the service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("query"); err != nil {
			return err
		}

		man, err := source.LoadManifest(cfg.Data.Manifest)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.Data.WorkDir, 0o755); err != nil {
			return eris.Wrapf(err, "create work dir %s", cfg.Data.WorkDir)
		}

		results := probeAll(ctx, newFetcher(), man, cfg.Data.WorkDir)
		formatProbeResults(os.Stdout, results)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return eris.Errorf("sources probe: %d of %d sources failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesProbeCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// formatSources writes one row per manifest entry to w.
func formatSources(out io.Writer, man *source.Manifest) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tNAME\tFORMAT\tURL")
	_, _ = fmt.Fprintln(w, "----\t----\t------\t---")

	_, _ = fmt.Fprintf(w, "coordinates\t-\t%s\t%s\n",
		man.Coordinates.ResolvedFormat(), truncate(man.Coordinates.URL, 70))
	if man.Crosswalk.URL != "" {
		_, _ = fmt.Fprintf(w, "crosswalk\t-\t%s\t%s\n",
			man.Crosswalk.ResolvedFormat(), truncate(man.Crosswalk.URL, 70))
	}
	for _, year := range man.YearList() {
		ref := man.Years[year]
		_, _ = fmt.Fprintf(w, "indicators\t%s\t%s\t%s\n",
			year, ref.ResolvedFormat(), truncate(ref.URL, 70))
	}
	for _, name := range layerNames(man) {
		_, _ = fmt.Fprintf(w, "layer\t%s\tgeojson\t%s\n",
			name, truncate(man.Layers[name].URL, 70))
	}
	_ = w.Flush()
}

func layerNames(man *source.Manifest) []string {
	names := make([]string, 0, len(man.Layers))
	for name := range man.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type probeResult struct {
	Kind    string
	Name    string
	Rows    int
	Elapsed time.Duration
	Err     error
}

// probeAll fetches every manifest source in a stable order. Failures are
// collected per source so one dead URL does not hide the rest.
func probeAll(ctx context.Context, f fetcher.Fetcher, man *source.Manifest, workDir string) []probeResult {
	var results []probeResult

	add := func(kind, name string, rows int, elapsed time.Duration, err error) {
		results = append(results, probeResult{Kind: kind, Name: name, Rows: rows, Elapsed: elapsed, Err: err})
	}

	start := time.Now()
	rows, err := probeTabular(ctx, f, man.Coordinates, workDir)
	add("coordinates", "-", rows, time.Since(start), err)

	if man.Crosswalk.URL != "" {
		start = time.Now()
		rows, err = probeTabular(ctx, f, man.Crosswalk, workDir)
		add("crosswalk", "-", rows, time.Since(start), err)
	}

	for _, year := range man.YearList() {
		start = time.Now()
		rows, err = probeTabular(ctx, f, man.Years[year], workDir)
		add("indicators", year, rows, time.Since(start), err)
	}

	for _, name := range layerNames(man) {
		start = time.Now()
		rows, err = probeLayer(ctx, f, name, man.Layers[name])
		add("layer", name, rows, time.Since(start), err)
	}

	return results
}

// probeTabular counts the data records in one tabular source. CSV sources
// are streamed so a large file never has to be held as a table.
func probeTabular(ctx context.Context, f fetcher.Fetcher, ref source.Ref, workDir string) (int, error) {
	switch ref.ResolvedFormat() {
	case "json":
		rc, err := f.Download(ctx, ref.URL)
		if err != nil {
			return 0, err
		}
		defer rc.Close() //nolint:errcheck

		recs, errs := fetcher.DecodeJSONArray[map[string]any](ctx, rc)
		count := 0
		for range recs {
			count++
		}
		if err := <-errs; err != nil {
			return 0, err
		}
		return count, nil

	case "xlsx":
		local := filepath.Join(workDir, fmt.Sprintf("probe-%d-%s", time.Now().UnixNano(), filepath.Base(ref.URL)))
		if err := f.DownloadToFile(ctx, ref.URL, local); err != nil {
			return 0, err
		}
		defer os.Remove(local) //nolint:errcheck

		rowCh, errCh := fetcher.StreamXLSX(ctx, local, fetcher.XLSXOptions{SheetName: ref.Sheet, SkipRows: 1})
		count := 0
		for range rowCh {
			count++
		}
		if err := <-errCh; err != nil {
			return 0, err
		}
		return count, nil

	default:
		rc, err := f.Download(ctx, ref.URL)
		if err != nil {
			return 0, err
		}
		defer rc.Close() //nolint:errcheck

		rowCh, errCh := fetcher.StreamCSV(ctx, rc, fetcher.CSVOptions{HasHeader: true})
		count := 0
		for range rowCh {
			count++
		}
		if err := <-errCh; err != nil {
			return 0, err
		}
		return count, nil
	}
}

func probeLayer(ctx context.Context, f fetcher.Fetcher, name string, ref source.LayerRef) (int, error) {
	rc, err := f.Download(ctx, ref.URL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, eris.Wrapf(err, "read layer %s", name)
	}

	layer, err := source.ParseLayer(name, ref.Key, data)
	if err != nil {
		return 0, err
	}
	return len(layer.Features), nil
}

// formatProbeResults writes one row per probed source to w.
func formatProbeResults(out io.Writer, results []probeResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tNAME\tROWS\tELAPSED\tSTATUS")
	_, _ = fmt.Fprintln(w, "----\t----\t----\t-------\t------")

	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = truncate(r.Err.Error(), 60)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.Kind, r.Name, r.Rows, r.Elapsed.Round(time.Millisecond), status)
	}
	_ = w.Flush()
}
