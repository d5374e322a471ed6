package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/loader"
	"github.com/Zachkp/folio/internal/logging"
)

type app struct {
	cfg    *config.Config
	logger *zap.Logger

	dataDir  string
	dataURL  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "folio",
		Short: "Serve a data-driven portfolio site",
		Long: `folio loads portfolio content from JSON documents (profile, skills,
experience, education, projects, contact) and serves it as a page with
filterable projects, a project detail modal and scroll reveal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding the JSON documents (overrides DATA_DIR)")
	root.PersistentFlags().StringVar(&a.dataURL, "data-url", "", "base URL to fetch the JSON documents from (overrides DATA_BASE_URL)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(newServeCmd(a), newRenderCmd(a), newCheckCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Content.Dir = a.dataDir
	}
	if cmd.Flags().Changed("data-url") {
		cfg.Content.BaseURL = a.dataURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLoader fetches over HTTP when a base URL is configured and from the
// data directory otherwise.
func (a *app) newLoader() *loader.Loader {
	var fetcher loader.Fetcher = loader.FSFetcher{FS: os.DirFS(a.cfg.Content.Dir)}
	if a.cfg.Content.BaseURL != "" {
		fetcher = &loader.HTTPFetcher{
			BaseURL: a.cfg.Content.BaseURL,
			Client:  &http.Client{Timeout: a.cfg.Content.LoadTimeout},
		}
	}
	return loader.New(fetcher,
		loader.WithTimeout(a.cfg.Content.LoadTimeout),
		loader.WithLogger(a.logger.Named("loader")),
	)
}
