package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/content"
)

type snapshot struct {
	state   content.State
	version uint64
}

// Holder keeps the current content state. Each successful load is published
// as a new immutable snapshot with a higher version.
type Holder struct {
	loader *Loader
	logger *zap.Logger

	current atomic.Pointer[snapshot]
	mu      sync.Mutex
}

func NewHolder(l *Loader) *Holder {
	h := &Holder{loader: l, logger: l.logger}
	h.current.Store(&snapshot{state: content.NotLoaded{}})
	return h
}

// Current returns the published state and its version.
func (h *Holder) Current() (content.State, uint64) {
	s := h.current.Load()
	return s.state, s.version
}

// Reload runs a full load. On failure a previously loaded snapshot stays
// published; otherwise the state becomes Failed.
func (h *Holder) Reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.current.Load()
	model, err := h.loader.Load(ctx)
	if err != nil {
		if _, ok := prev.state.(content.Loaded); ok {
			h.logger.Warn("Reload failed, keeping previous content", zap.Uint64("version", prev.version))
			return err
		}
		h.current.Store(&snapshot{state: content.Failed{Err: err}, version: prev.version + 1})
		return err
	}
	h.current.Store(&snapshot{state: content.Loaded{Model: model}, version: prev.version + 1})
	return nil
}

// Watch reloads whenever a JSON file in dir changes. Bursts of events are
// collapsed into one reload after debounce. It blocks until ctx is done.
func (h *Holder) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}
	h.logger.Info("Watching content directory", zap.String("dir", dir))

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			h.logger.Debug("Content file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("Watcher error", zap.Error(err))
		case <-timer.C:
			if err := h.Reload(ctx); err != nil {
				continue
			}
			_, version := h.Current()
			h.logger.Info("Content reloaded", zap.Uint64("version", version))
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
