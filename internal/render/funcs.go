package render

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/Zachkp/folio/internal/content"
)

var funcs = template.FuncMap{
	"paragraphs": paragraphs,
	"join":       strings.Join,
	"isAll":      content.IsAll,
	"eqFold":     eqFold,
	"query":      url.QueryEscape,
	"pathEscape": url.PathEscape,
	"hasStats":   hasStats,
	"entry":      newEntry,
}

// paragraphs splits text on newlines and drops blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func eqFold(a, b string) bool {
	return !content.IsAll(b) && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func hasStats(s content.ProfileStats) bool {
	return s != content.ProfileStats{}
}

type entryData struct {
	Entry    content.ExperienceEntry
	RevealID string
}

func newEntry(e content.ExperienceEntry, section string, i int) entryData {
	return entryData{Entry: e, RevealID: revealID(section, i)}
}
