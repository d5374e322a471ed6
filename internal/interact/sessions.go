package interact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zachkp/folio/internal/content"
)

// DefaultSessionTTL is how long an idle visitor's view state is kept.
const DefaultSessionTTL = 30 * time.Minute

// Session is one visitor's controller. Its lock serializes events, which
// mirrors the single-threaded event loop of a page.
type Session struct {
	ID string

	mu       sync.Mutex
	ctrl     *Controller
	version  uint64
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's controller.
func (s *Session) Do(fn func(*Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctrl)
}

// Sessions maps session ids to controllers.
type Sessions struct {
	ttl  time.Duration
	opts []Option
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*Session
}

// NewSessions keeps sessions for ttl after their last use. opts are passed
// to every controller it creates.
func NewSessions(ttl time.Duration, opts ...Option) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		ttl:     ttl,
		opts:    opts,
		now:     time.Now,
		entries: map[string]*Session{},
	}
}

// Acquire returns the session for id, creating one with a fresh id when id
// is unknown. A session built for an older content version gets a new
// controller for model, since its bindings point at markup of the old
// content. The replaced controller is reset first so its open media stops.
func (s *Sessions) Acquire(id string, model *content.Model, version uint64) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.entries[id]
	if !ok {
		sess = &Session{ID: uuid.NewString()}
		s.entries[sess.ID] = sess
		created = true
	}
	sess.lastSeen = now

	sess.mu.Lock()
	if sess.ctrl == nil || sess.version != version {
		if sess.ctrl != nil {
			sess.ctrl.Reset()
		}
		sess.ctrl = s.newController(model, version)
		sess.version = version
	}
	sess.mu.Unlock()
	return sess, created
}

func (s *Sessions) newController(model *content.Model, version uint64) *Controller {
	opts := append([]Option{WithGenerationBase(version << 32)}, s.opts...)
	return NewController(model, opts...)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
// were removed. Their controllers are reset so open media is stopped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var expired []*Session
	for id, sess := range s.entries {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		_ = sess.Do(func(c *Controller) error {
			c.Reset()
			return nil
		})
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
