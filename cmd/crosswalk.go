package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicatlas/msa-atlas/internal/dashboard"
)

var crosswalkJSON bool

var crosswalkCmd = &cobra.Command{
	Use:   "crosswalk [title]",
	Short: "Show the MSA to county crosswalk",
	Long:  "Prints the county GEOID lists per metro title, or the list for one title when given as an argument.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loader, err := newLoader("query")
		if err != nil {
			return err
		}
		svc := dashboard.NewService(loader, nil, dashboard.Options{})

		if len(args) == 1 {
			geoids, err := svc.Counties(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "crosswalk")
			}
			if crosswalkJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"title": args[0], "geoids": geoids})
			}
			for _, g := range geoids {
				fmt.Println(g)
			}
			return nil
		}

		cw, err := svc.Crosswalk(ctx)
		if err != nil {
			return eris.Wrap(err, "crosswalk")
		}
		if crosswalkJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cw)
		}

		formatCrosswalk(os.Stdout, cw)
		return nil
	},
}

func init() {
	crosswalkCmd.Flags().BoolVar(&crosswalkJSON, "json", false, "emit the crosswalk as JSON")
	rootCmd.AddCommand(crosswalkCmd)
}

// formatCrosswalk writes one row per metro title with its county GEOIDs.
func formatCrosswalk(out io.Writer, cw map[string][]string) {
	titles := make([]string, 0, len(cw))
	for t := range cw {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tCOUNTIES\tGEOIDS")
	_, _ = fmt.Fprintln(w, "-----\t--------\t------")

	for _, t := range titles {
		geoids := cw[t]
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n",
			truncate(t, 40),
			len(geoids),
			truncate(strings.Join(geoids, ","), 60),
		)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d titles\n", len(titles))
}
