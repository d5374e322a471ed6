package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/loader"
	"github.com/Zachkp/folio/internal/render"
	"github.com/Zachkp/folio/internal/server"
	"github.com/Zachkp/folio/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "port to listen on (overrides PORT)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(a.cfg.Server.GinMode)

	holder := loader.NewHolder(a.newLoader())
	if err := holder.Reload(ctx); err != nil {
		a.logger.Warn("Serving without content until the next successful reload", zap.Error(err))
	}
	go a.reloadOnHangup(ctx, holder)
	if a.cfg.Content.Watch && a.cfg.Content.BaseURL == "" {
		go func() {
			if err := holder.Watch(ctx, a.cfg.Content.Dir, 0); err != nil {
				a.logger.Error("Content watcher stopped", zap.Error(err))
			}
		}()
	}

	renderer, err := render.New(render.WithThreshold(a.cfg.View.RevealThreshold))
	if err != nil {
		return err
	}

	opts := server.Options{
		Config:   a.cfg,
		Content:  holder,
		Renderer: renderer,
		Logger:   a.logger.Named("server"),
	}

	if a.cfg.Store.Path != "" {
		st, err := store.Open(a.cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		recorder := store.NewRecorder(st, a.logger.Named("store"), 4)
		defer recorder.Close()
		go recorder.RunCleanup(ctx, 24*time.Hour)
		opts.Store = st
		opts.Recorder = recorder
		a.logger.Info("Privacy: visitor tracking enabled with hashed IP addresses")
	}

	if a.cfg.SMTPConfigured() {
		opts.Mailer = server.NewSMTPMailer(a.cfg.SMTP)
	} else {
		a.logger.Warn("SMTP is not configured, contact form submissions will fail")
	}

	srv, err := server.New(opts)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// reloadOnHangup reloads content on SIGHUP.
func (a *app) reloadOnHangup(ctx context.Context, holder *loader.Holder) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := holder.Reload(ctx); err != nil {
				continue
			}
			_, version := holder.Current()
			a.logger.Info("Content reloaded", zap.Uint64("version", version))
		}
	}
}
