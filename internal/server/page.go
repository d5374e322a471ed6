package server

import (
	"html/template"
	"io"

	"github.com/pkg/errors"

	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/render"
)

// Page states advertised on <body data-state>.
const (
	stateLoaded  = "loaded"
	stateLoading = "loading"
	stateFailed  = "failed"
)

type pageData struct {
	Title     string
	State     string
	Threshold float64
	Sections  map[string]template.HTML
	Modal     template.HTML
}

type slotData struct {
	Name  string
	State string
	HTML  template.HTML
}

// Slot returns the container content for a section. Sections with no
// rendered fragment get a placeholder carrying the page state.
func (p pageData) Slot(name string) slotData {
	return slotData{Name: name, State: p.State, HTML: p.Sections[name]}
}

func newPageData(m *content.Model, state string, fragments map[render.Section]template.HTML, modal template.HTML, threshold float64) pageData {
	data := pageData{
		Title:     "Portfolio",
		State:     state,
		Threshold: threshold,
		Sections:  make(map[string]template.HTML, len(fragments)),
		Modal:     modal,
	}
	if m != nil && m.Profile != nil && m.Profile.Name != "" {
		data.Title = m.Profile.Name
		if m.Profile.Title != "" {
			data.Title += " | " + m.Profile.Title
		}
	}
	for name, html := range fragments {
		data.Sections[string(name)] = html
	}
	return data
}

// WriteStatic renders the full page for m without a live controller. Every
// binding has generation zero, so the output only suits static hosting.
func WriteStatic(w io.Writer, r *render.Renderer, m *content.Model, threshold float64) error {
	pages, err := template.New("pages").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return errors.Wrap(err, "failed to parse page templates")
	}
	fragments, err := r.Page(render.Sections, m, nil, render.View{ActiveFilter: content.AllTag})
	if err != nil {
		return err
	}
	modal, err := r.ClosedModal()
	if err != nil {
		return err
	}
	data := newPageData(m, stateLoaded, fragments, modal, threshold)
	return errors.Wrap(pages.ExecuteTemplate(w, "page", data), "failed to render page")
}
