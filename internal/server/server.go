// Package server serves the portfolio page and the fragment endpoints that
// drive each visitor's interaction controller.
package server

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/interact"
	"github.com/Zachkp/folio/internal/render"
	"github.com/Zachkp/folio/internal/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ContentSource publishes the current content state and its version.
type ContentSource interface {
	Current() (content.State, uint64)
}

type Options struct {
	Config   *config.Config
	Content  ContentSource
	Renderer *render.Renderer
	Logger   *zap.Logger

	// Store and Recorder are optional; without them analytics and the admin
	// dashboard are disabled.
	Store    *store.Store
	Recorder *store.Recorder
	// Mailer is optional; without it the contact form reports an error.
	Mailer Mailer
}

type Server struct {
	cfg      *config.Config
	content  ContentSource
	renderer *render.Renderer
	sessions *interact.Sessions
	store    *store.Store
	recorder *store.Recorder
	mailer   Mailer
	logger   *zap.Logger

	pages      *template.Template
	adminToken string
	engine     *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Content == nil || opts.Renderer == nil {
		return nil, errors.New("config, content and renderer are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := template.New("pages").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse page templates")
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        opts.Config,
		content:    opts.Content,
		renderer:   opts.Renderer,
		store:      opts.Store,
		recorder:   opts.Recorder,
		mailer:     opts.Mailer,
		logger:     logger,
		pages:      pages,
		adminToken: token,
	}
	s.sessions = interact.NewSessions(opts.Config.View.SessionTTL,
		interact.WithThreshold(opts.Config.View.RevealThreshold),
		interact.WithMediaStopper(interact.MediaStopperFunc(s.stopMedia)),
	)
	s.engine = s.routes()
	return s, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate admin token")
	}
	return hex.EncodeToString(b), nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Sessions returns the visitor session registry.
func (s *Server) Sessions() *interact.Sessions {
	return s.sessions
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), metricsMiddleware())
	r.SetHTMLTemplate(s.pages)
	if s.recorder != nil {
		r.Use(visitorTracking(s.recorder))
	}

	r.Static("/images", s.cfg.Server.ImagesDir)
	r.Static("/static", s.cfg.Server.StaticDir)
	if s.cfg.Content.Dir != "" {
		r.Static("/data", s.cfg.Content.Dir)
	}

	r.GET("/", s.handlePage)
	r.GET("/sections/:name", s.handleSection)
	r.POST("/filter", s.handleFilter)
	r.GET("/projects/:id", s.handleProject)
	r.POST("/modal/close", s.handleModalClose)
	r.POST("/modal/key", s.handleModalKey)
	r.POST("/modal/carousel/:dir", s.handleCarousel)
	r.POST("/reveal", s.handleReveal)

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", s.handleContact)

	s.adminRoutes(r)
	return r
}

// Run serves on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sessions.Run(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// stopMedia only counts and logs. Players live in the modal markup, and
// playback halts when the closed modal fragment replaces it; close and
// Escape always answer with that fragment.
func (s *Server) stopMedia(projectID string) {
	mediaStopsTotal.Inc()
	s.logger.Debug("Stopping project media", zap.String("project", projectID))
}
