// Package interact owns the view state of one visitor: the active filter,
// the project modal with its gallery carousel, and scroll reveal. Events are
// delivered with the binding generation of the markup they came from, so a
// handler bound to a replaced render never fires.
package interact

import (
	"github.com/pkg/errors"

	"github.com/Zachkp/folio/internal/content"
)

var (
	// ErrStaleBinding is returned for events from markup that has since
	// been re-rendered.
	ErrStaleBinding = errors.New("stale binding")
	// ErrUnbound is returned for events aimed at a section that was never
	// rendered or has been unmounted.
	ErrUnbound = errors.New("section not bound")
	// ErrUnknownProject is returned when a card refers to no project.
	ErrUnknownProject = errors.New("unknown project")
	// ErrUnknownEvent is returned for unsupported event kinds.
	ErrUnknownEvent = errors.New("unknown event")
)

// Binding keys used by Dispatch.
const (
	BindFilters  = "filters"
	BindProjects = "projects"
	BindModal    = "modal"
)

type EventKind string

const (
	EventFilter       EventKind = "filter"
	EventCardClick    EventKind = "card"
	EventModalClose   EventKind = "close"
	EventKey          EventKind = "key"
	EventCarouselNext EventKind = "carousel-next"
	EventCarouselPrev EventKind = "carousel-prev"
	EventScroll       EventKind = "scroll"
)

// Event is one user interaction. Generation must match the current binding
// of the section the event targets; key and scroll events are document-wide
// and carry none.
type Event struct {
	Kind       EventKind
	Generation uint64

	Tag       string
	ProjectID string
	Reason    CloseReason
	Key       string

	Viewport float64
	Tops     map[string]float64
}

// Result is the view state after an event.
type Result struct {
	Changed      bool
	Filter       string
	Visibility   []CardVisibility
	Modal        ModalState
	ScrollLocked bool
	Carousel     int
	Reveals      []Transition
}

type Controller struct {
	model *content.Model

	filter *Filter
	modal  *Modal
	reveal *Reveal

	generation uint64
	bindings   map[string]uint64
	observed   map[string][]string
}

type Option func(*controllerOptions)

type controllerOptions struct {
	threshold float64
	stopper   MediaStopper
	base      uint64
}

// WithThreshold sets the reveal threshold as a fraction of viewport height.
func WithThreshold(t float64) Option {
	return func(o *controllerOptions) { o.threshold = t }
}

// WithMediaStopper is called whenever the modal leaves a project.
func WithMediaStopper(s MediaStopper) Option {
	return func(o *controllerOptions) { o.stopper = s }
}

// WithGenerationBase offsets generations so that controllers built for
// different content versions never hand out the same number.
func WithGenerationBase(base uint64) Option {
	return func(o *controllerOptions) { o.base = base }
}

func NewController(model *content.Model, opts ...Option) *Controller {
	o := controllerOptions{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller{
		model:      model,
		filter:     NewFilter(),
		reveal:     NewReveal(o.threshold),
		generation: o.base,
		bindings:   map[string]uint64{},
		observed:   map[string][]string{},
	}
	c.modal = NewModal(model.Project, o.stopper)
	return c
}

func (c *Controller) Model() *content.Model { return c.model }
func (c *Controller) Filter() *Filter       { return c.filter }
func (c *Controller) Modal() *Modal         { return c.modal }
func (c *Controller) Reveal() *Reveal       { return c.reveal }

// Rendered records a fresh render of section and returns the generation to
// stamp into its markup. The previous binding and its reveal observations
// are dropped before the new ones are attached.
func (c *Controller) Rendered(section string, revealIDs []string, policy Policy) uint64 {
	c.release(section)
	c.generation++
	c.bindings[section] = c.generation
	for _, id := range revealIDs {
		c.reveal.Observe(id, policy)
	}
	if len(revealIDs) > 0 {
		c.observed[section] = append([]string(nil), revealIDs...)
	}
	return c.generation
}

// Unmount drops the binding of a section that is no longer on the page.
func (c *Controller) Unmount(section string) {
	c.release(section)
}

func (c *Controller) release(section string) {
	delete(c.bindings, section)
	for _, id := range c.observed[section] {
		c.reveal.Release(id)
	}
	delete(c.observed, section)
}

// CloseModal closes the modal and drops its binding whatever markup the
// request came from. It reports whether a modal was open.
func (c *Controller) CloseModal(reason CloseReason) bool {
	closed := c.modal.Close(reason)
	c.release(BindModal)
	return closed
}

// Generation returns the current binding generation of section.
func (c *Controller) Generation(section string) (uint64, bool) {
	gen, ok := c.bindings[section]
	return gen, ok
}

// Reset returns to the initial view state, as on a full page load.
func (c *Controller) Reset() {
	c.modal.Close(CloseButton)
	c.filter = NewFilter()
	c.reveal.Teardown()
	c.bindings = map[string]uint64{}
	c.observed = map[string][]string{}
}

func (c *Controller) checkBinding(section string, gen uint64) error {
	current, ok := c.bindings[section]
	if !ok {
		return errors.Wrap(ErrUnbound, section)
	}
	if gen != current {
		return errors.Wrapf(ErrStaleBinding, "%s generation %d, current %d", section, gen, current)
	}
	return nil
}

// Dispatch applies one event.
func (c *Controller) Dispatch(ev Event) (Result, error) {
	var changed bool
	var reveals []Transition

	switch ev.Kind {
	case EventFilter:
		if err := c.checkBinding(BindFilters, ev.Generation); err != nil {
			return c.result(false, nil), err
		}
		before := c.filter.Active()
		c.filter.Select(ev.Tag)
		changed = before != c.filter.Active()

	case EventCardClick:
		if err := c.checkBinding(BindProjects, ev.Generation); err != nil {
			return c.result(false, nil), err
		}
		before := c.modal.State()
		if !c.modal.Open(ev.ProjectID) {
			return c.result(false, nil), errors.Wrap(ErrUnknownProject, ev.ProjectID)
		}
		changed = before != c.modal.State()

	case EventModalClose:
		if err := c.checkBinding(BindModal, ev.Generation); err != nil {
			return c.result(false, nil), err
		}
		changed = c.modal.Close(ev.Reason)

	case EventKey:
		changed = c.modal.HandleKey(ev.Key)

	case EventCarouselNext, EventCarouselPrev:
		if err := c.checkBinding(BindModal, ev.Generation); err != nil {
			return c.result(false, nil), err
		}
		car := c.modal.Carousel()
		if car == nil || car.Len() < 2 {
			break
		}
		if ev.Kind == EventCarouselNext {
			car.Next()
		} else {
			car.Prev()
		}
		changed = true

	case EventScroll:
		reveals = c.reveal.Update(ev.Viewport, ev.Tops)
		changed = len(reveals) > 0

	default:
		return c.result(false, nil), errors.Wrapf(ErrUnknownEvent, "%q", ev.Kind)
	}

	return c.result(changed, reveals), nil
}

func (c *Controller) result(changed bool, reveals []Transition) Result {
	r := Result{
		Changed:      changed,
		Filter:       c.filter.Active(),
		Modal:        c.modal.State(),
		ScrollLocked: c.modal.ScrollLocked(),
		Reveals:      reveals,
	}
	if c.model != nil {
		r.Visibility = c.filter.Visibility(c.model.Projects)
	}
	if car := c.modal.Carousel(); car != nil {
		r.Carousel = car.Index()
	}
	return r
}
