package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicatlas/msa-atlas/internal/layers"
	"github.com/civicatlas/msa-atlas/internal/source"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Manage boundary overlay layers",
}

var (
	layersImportURL     string
	layersImportKey     string
	layersImportFields  []string
	layersImportOut     string
	layersImportWorkDir string
)

var layersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Convert a shapefile into a GeoJSON overlay",
	Long:  "Downloads a zipped shapefile (or reads a local one), converts it to GeoJSON, and writes it where the source manifest can reference it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		workDir := layersImportWorkDir
		if workDir == "" {
			workDir = cfg.Data.WorkDir
		}
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return eris.Wrapf(err, "create work dir %s", workDir)
		}

		res, err := layers.Import(ctx, newFetcher(), layers.ImportOptions{
			URL:     layersImportURL,
			Key:     layersImportKey,
			Fields:  layersImportFields,
			OutPath: layersImportOut,
			WorkDir: workDir,
		})
		if err != nil {
			return eris.Wrap(err, "layers import")
		}

		fmt.Printf("wrote %s: %d features, %d skipped, %d bytes\n",
			res.OutPath, res.Features, res.Skipped, res.Bytes)
		return nil
	},
}

var layersInspectKey string

var layersInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize a GeoJSON overlay file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read layer %s", args[0])
		}

		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		layer, err := source.ParseLayer(name, layersInspectKey, data)
		if err != nil {
			return eris.Wrap(err, "layers inspect")
		}

		formatLayer(os.Stdout, layer)
		return nil
	},
}

func init() {
	layersImportCmd.Flags().StringVar(&layersImportURL, "url", "", "shapefile source: a .zip URL or a local .shp/.zip path (required)")
	layersImportCmd.Flags().StringVar(&layersImportKey, "key", "GEOID", "attribute used as the feature ID")
	layersImportCmd.Flags().StringSliceVar(&layersImportFields, "fields", nil, "attributes to keep as properties (default all)")
	layersImportCmd.Flags().StringVar(&layersImportOut, "out", "", "output GeoJSON path (required)")
	layersImportCmd.Flags().StringVar(&layersImportWorkDir, "work-dir", "", "scratch dir for downloads (default data.work_dir)")
	_ = layersImportCmd.MarkFlagRequired("url")
	_ = layersImportCmd.MarkFlagRequired("out")

	layersInspectCmd.Flags().StringVar(&layersInspectKey, "key", "", "property used as the feature key (default auto-detect)")

	layersCmd.AddCommand(layersImportCmd)
	layersCmd.AddCommand(layersInspectCmd)
	rootCmd.AddCommand(layersCmd)
}

// formatLayer writes a summary of a parsed layer to w.
func formatLayer(out io.Writer, layer *source.Layer) {
	_, _ = fmt.Fprintf(out, "layer %s: %d features\n", layer.Name, len(layer.Features))
	if layer.Bounds != nil {
		_, _ = fmt.Fprintf(out, "bounds: %.4f,%.4f to %.4f,%.4f\n",
			layer.Bounds.Min(0), layer.Bounds.Min(1), layer.Bounds.Max(0), layer.Bounds.Max(1))
	}
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tCENTROID")
	_, _ = fmt.Fprintln(w, "---\t----\t--------")

	const maxRows = 20
	for i, f := range layer.Features {
		if i == maxRows {
			_, _ = fmt.Fprintf(w, "...\t%d more\t\n", len(layer.Features)-maxRows)
			break
		}
		centroid := "-"
		if len(f.Centroid) >= 2 {
			centroid = fmt.Sprintf("%.4f,%.4f", f.Centroid[0], f.Centroid[1])
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, truncate(f.Name, 40), centroid)
	}
	_ = w.Flush()
}
