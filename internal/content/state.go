package content

// State is the load state of the site content: NotLoaded, Loaded or Failed.
type State interface {
	isState()
}

// NotLoaded is the state before the first load completes.
type NotLoaded struct{}

// Loaded carries a successfully built model.
type Loaded struct {
	Model *Model
}

// Failed carries the error of a load that did not complete.
type Failed struct {
	Err error
}

func (NotLoaded) isState() {}
func (Loaded) isState()    {}
func (Failed) isState()    {}

// ModelOf returns the model of a Loaded state.
func ModelOf(s State) (*Model, bool) {
	loaded, ok := s.(Loaded)
	if !ok || loaded.Model == nil {
		return nil, false
	}
	return loaded.Model, true
}
