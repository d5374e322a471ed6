package interact

import (
	"github.com/Zachkp/folio/internal/content"
)

// CloseReason records which control closed the modal.
type CloseReason string

const (
	CloseButton   CloseReason = "button"
	CloseBackdrop CloseReason = "backdrop"
	CloseEscape   CloseReason = "escape"
)

// KeyEscape is the key name that closes an open modal.
const KeyEscape = "Escape"

// MediaStopper stops embedded players belonging to a project whose detail
// view is being left.
type MediaStopper interface {
	StopMedia(projectID string)
}

// MediaStopperFunc adapts a function to MediaStopper.
type MediaStopperFunc func(projectID string)

func (f MediaStopperFunc) StopMedia(projectID string) { f(projectID) }

// ModalState is Closed (Open false) or Open(ProjectID).
type ModalState struct {
	Open      bool   `json:"open"`
	ProjectID string `json:"projectId,omitempty"`
}

// Modal is the project detail state machine.
type Modal struct {
	lookup  func(id string) (content.Project, bool)
	stopper MediaStopper

	open     bool
	project  content.Project
	carousel *Carousel
}

func NewModal(lookup func(id string) (content.Project, bool), stopper MediaStopper) *Modal {
	if stopper == nil {
		stopper = MediaStopperFunc(func(string) {})
	}
	return &Modal{lookup: lookup, stopper: stopper}
}

// Open shows the project with the given id. Unknown ids leave the state
// untouched and return false. Opening another project while open switches
// directly, stopping the previous project's media.
func (m *Modal) Open(id string) bool {
	p, ok := m.lookup(id)
	if !ok {
		return false
	}
	if m.open {
		if m.project.ID == id {
			return true
		}
		m.stopper.StopMedia(m.project.ID)
	}
	m.open = true
	m.project = p
	m.carousel = NewCarousel(p.Gallery)
	return true
}

// Close returns to Closed. Closing an already closed modal is a no-op.
func (m *Modal) Close(reason CloseReason) bool {
	if !m.open {
		return false
	}
	m.stopper.StopMedia(m.project.ID)
	m.open = false
	m.project = content.Project{}
	m.carousel = nil
	return true
}

// HandleKey closes the modal on Escape. Other keys are ignored.
func (m *Modal) HandleKey(key string) bool {
	if key != KeyEscape {
		return false
	}
	return m.Close(CloseEscape)
}

func (m *Modal) State() ModalState {
	return ModalState{Open: m.open, ProjectID: m.project.ID}
}

// ScrollLocked reports whether background scrolling is suppressed.
func (m *Modal) ScrollLocked() bool {
	return m.open
}

// Project returns the open project.
func (m *Modal) Project() (content.Project, bool) {
	return m.project, m.open
}

// Carousel returns the gallery cursor of the open project, nil when closed.
func (m *Modal) Carousel() *Carousel {
	return m.carousel
}
