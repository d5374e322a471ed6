package interact

import (
	"strings"

	"github.com/Zachkp/folio/internal/content"
)

// Filter holds the active project filter. The zero value is not usable;
// use NewFilter, which starts at All.
type Filter struct {
	active string
}

func NewFilter() *Filter {
	return &Filter{active: content.AllTag}
}

// Active returns the active tag, or content.AllTag.
func (f *Filter) Active() string {
	return f.active
}

// Select makes tag the active filter. Blank and "all" select All.
func (f *Filter) Select(tag string) {
	if content.IsAll(tag) {
		f.active = content.AllTag
		return
	}
	f.active = strings.TrimSpace(tag)
}

// Matches reports whether p is visible under the active filter.
func (f *Filter) Matches(p content.Project) bool {
	if content.IsAll(f.active) {
		return true
	}
	for _, tag := range p.FilterTags {
		if strings.EqualFold(tag, f.active) {
			return true
		}
	}
	return false
}

// CardVisibility is the visibility of one project card.
type CardVisibility struct {
	ID      string `json:"id"`
	Visible bool   `json:"visible"`
}

// Visibility evaluates every project against the active filter, in order.
func (f *Filter) Visibility(projects []content.Project) []CardVisibility {
	out := make([]CardVisibility, 0, len(projects))
	for _, p := range projects {
		out = append(out, CardVisibility{ID: p.ID, Visible: f.Matches(p)})
	}
	return out
}

// Hidden returns the ids of projects the active filter hides.
func (f *Filter) Hidden(projects []content.Project) map[string]bool {
	hidden := map[string]bool{}
	for _, p := range projects {
		if !f.Matches(p) {
			hidden[p.ID] = true
		}
	}
	return hidden
}
