package loader

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zachkp/folio/internal/content"
)

// DefaultTimeout bounds a whole load when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when a load does not finish within its timeout.
var ErrTimeout = errors.New("content load timed out")

// Locator maps a resource to the path it is fetched from.
type Locator struct {
	Resource content.Resource
	Path     string
}

// DefaultLocators returns "<resource>.json" for every known resource.
func DefaultLocators() []Locator {
	locators := make([]Locator, 0, len(content.Resources))
	for _, r := range content.Resources {
		locators = append(locators, Locator{Resource: r, Path: string(r) + ".json"})
	}
	return locators
}

// Loader fetches every configured resource concurrently and builds one
// content model. A load succeeds or fails as a unit.
type Loader struct {
	fetcher  Fetcher
	locators []Locator
	timeout  time.Duration
	logger   *zap.Logger
}

type Option func(*Loader)

func WithLocators(locators ...Locator) Option {
	return func(l *Loader) { l.locators = locators }
}

func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(fetcher Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		locators: DefaultLocators(),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches all resources in parallel. The first failure cancels the
// others and fails the load; nothing is returned for resources that did
// arrive.
func (l *Loader) Load(ctx context.Context) (*content.Model, error) {
	start := time.Now()
	model, err := l.load(ctx)
	loadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		loadsTotal.WithLabelValues("failure").Inc()
		l.logger.Error("Content load failed",
			zap.Error(err),
			zap.Int("resources", len(l.locators)),
			zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	loadsTotal.WithLabelValues("success").Inc()
	l.logger.Info("Content loaded",
		zap.Int("resources", len(l.locators)),
		zap.Int("projects", len(model.Projects)),
		zap.Duration("elapsed", time.Since(start)))
	return model, nil
}

func (l *Loader) load(ctx context.Context) (*content.Model, error) {
	seen := make(map[content.Resource]bool, len(l.locators))
	for _, loc := range l.locators {
		if seen[loc.Resource] {
			return nil, errors.Errorf("resource %s configured twice", loc.Resource)
		}
		seen[loc.Resource] = true
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	bodies := make([][]byte, len(l.locators))
	g, gCtx := errgroup.WithContext(ctx)
	for i, loc := range l.locators {
		g.Go(func() error {
			body, err := l.fetcher.Fetch(gCtx, loc.Path)
			if err != nil {
				return errors.Wrapf(err, "failed to load %s", loc.Resource)
			}
			if !json.Valid(body) {
				return errors.Errorf("failed to load %s: %s is not valid JSON", loc.Resource, loc.Path)
			}
			bodies[i] = body
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrTimeout, "after %s: %v", l.timeout, err)
		}
		return nil, err
	}

	docs := make(map[content.Resource]json.RawMessage, len(l.locators))
	for i, loc := range l.locators {
		docs[loc.Resource] = bodies[i]
	}
	model, err := content.Build(docs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build content model")
	}
	return model, nil
}

// State runs Load and reports the outcome as a content.State.
func (l *Loader) State(ctx context.Context) content.State {
	model, err := l.Load(ctx)
	if err != nil {
		return content.Failed{Err: err}
	}
	return content.Loaded{Model: model}
}
