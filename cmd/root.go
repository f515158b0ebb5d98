package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/civicatlas/msa-atlas/internal/config"
	"github.com/civicatlas/msa-atlas/internal/fetcher"
	"github.com/civicatlas/msa-atlas/internal/source"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "msa-atlas",
	Short: "Metro-area SDG indicator dashboard backend",
	Long:  "Fetches metro-area SDG indicator tables, joins them with coordinates and county crosswalks, and serves the results as a dashboard API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newFetcher builds the shared download client from the fetch config.
func newFetcher() fetcher.Fetcher {
	timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
	return fetcher.New(fetcher.Options{
		HTTP: fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    timeout,
			MaxRetries: cfg.Fetch.MaxRetries,
			RateLimit:  rate.Limit(cfg.Fetch.RateLimit),
			RateBurst:  cfg.Fetch.RateBurst,
		},
		FTP: fetcher.FTPOptions{Timeout: timeout},
	})
}

// newLoader validates the config for the given mode, reads the source
// manifest, and wires it to a fetcher-backed loader.
func newLoader(mode string) (*source.Loader, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	man, err := source.LoadManifest(cfg.Data.Manifest)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Data.WorkDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create work dir %s", cfg.Data.WorkDir)
	}

	return source.NewLoader(newFetcher(), man, cfg.Data.WorkDir), nil
}
