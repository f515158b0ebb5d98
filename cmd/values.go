package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicatlas/msa-atlas/internal/dashboard"
)

var (
	valuesYear     string
	valuesCategory string
	valuesBy       string
	valuesJSON     bool
)

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Aggregate indicator values per metro area",
	Long:  "Loads one indicator year and prints the per-area mean values keyed by area name or GEOID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if valuesBy != "name" && valuesBy != "code" {
			return eris.Errorf("values: --by must be name or code, got %q", valuesBy)
		}

		loader, err := newLoader("query")
		if err != nil {
			return err
		}

		svc := dashboard.NewService(loader, nil, dashboard.Options{})
		snap, err := svc.Select(ctx, valuesYear, valuesCategory)
		if err != nil {
			return eris.Wrap(err, "values")
		}
		if snap.Failed() {
			return eris.New(snap.Error)
		}

		if valuesJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.Values)
		}

		formatValues(os.Stdout, snap, valuesBy)
		return nil
	},
}

func init() {
	valuesCmd.Flags().StringVar(&valuesYear, "year", "", "indicator year (default latest in manifest)")
	valuesCmd.Flags().StringVar(&valuesCategory, "category", "", "SDG category filter, e.g. 1 or SDG-01 (default overall)")
	valuesCmd.Flags().StringVar(&valuesBy, "by", "name", "key the table by area name or code")
	valuesCmd.Flags().BoolVar(&valuesJSON, "json", false, "emit the value lookup as JSON")
	rootCmd.AddCommand(valuesCmd)
}

// formatValues writes one aggregated value table to w, keyed as requested.
func formatValues(out io.Writer, snap *dashboard.Snapshot, by string) {
	vals := snap.Values.ByName
	header := "AREA"
	if by == "code" {
		vals = snap.Values.ByCode
		header = "GEOID"
	}

	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\tVALUE\n", header)
	_, _ = fmt.Fprintln(w, "-----\t-----")

	for _, k := range keys {
		v := "-"
		if vals[k] != nil {
			v = fmt.Sprintf("%.4f", *vals[k])
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", truncate(k, 40), v)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nyear %s category %s: %d areas\n", snap.Year, snap.Category, len(keys))
}
