package interact

// Policy decides whether a revealed element can be hidden again.
type Policy int

const (
	// OneShot reveals once and never reverts.
	OneShot Policy = iota
	// Toggle reveals on the way in and un-reveals on scroll-back. Used for
	// pinned full-viewport sections only.
	Toggle
)

// DefaultThreshold is the fraction of the viewport height an element's top
// must cross to be revealed.
const DefaultThreshold = 0.8

// Transition is a change of an element's revealed state.
type Transition struct {
	ID       string `json:"id"`
	Revealed bool   `json:"revealed"`
}

type observed struct {
	policy   Policy
	revealed bool
}

// Reveal tracks scroll-triggered reveal state for observed elements.
type Reveal struct {
	threshold float64
	elements  map[string]*observed
	order     []string
}

func NewReveal(threshold float64) *Reveal {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Reveal{threshold: threshold, elements: map[string]*observed{}}
}

func (r *Reveal) Threshold() float64 { return r.threshold }

// Observe starts tracking id in the pending state. Observing an id again
// resets it, which is what a fresh render of the element needs.
func (r *Reveal) Observe(id string, policy Policy) {
	if _, ok := r.elements[id]; !ok {
		r.order = append(r.order, id)
	}
	r.elements[id] = &observed{policy: policy}
}

// Update feeds element tops (relative to the viewport) for a viewport of
// the given height and returns the transitions in observation order.
// Unobserved ids are ignored.
func (r *Reveal) Update(viewport float64, tops map[string]float64) []Transition {
	if viewport <= 0 {
		return nil
	}
	line := r.threshold * viewport
	var out []Transition
	for _, id := range r.order {
		el := r.elements[id]
		top, ok := tops[id]
		if !ok {
			continue
		}
		in := top <= line
		switch el.policy {
		case Toggle:
			if in != el.revealed {
				el.revealed = in
				out = append(out, Transition{ID: id, Revealed: in})
			}
		default:
			if in && !el.revealed {
				el.revealed = true
				out = append(out, Transition{ID: id, Revealed: true})
			}
		}
	}
	return out
}

func (r *Reveal) Revealed(id string) bool {
	el, ok := r.elements[id]
	return ok && el.revealed
}

func (r *Reveal) Observing(id string) bool {
	_, ok := r.elements[id]
	return ok
}

// Release stops tracking id.
func (r *Reveal) Release(id string) {
	if _, ok := r.elements[id]; !ok {
		return
	}
	delete(r.elements, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Teardown releases every observation.
func (r *Reveal) Teardown() {
	r.elements = map[string]*observed{}
	r.order = nil
}
