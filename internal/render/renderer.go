// Package render turns the content model into HTML fragments. Every
// function is deterministic: the same model and binding always produce the
// same bytes.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Zachkp/folio/internal/content"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Section names a page container the renderer can fill.
type Section string

const (
	SectionProfile      Section = "profile"
	SectionSkills       Section = "skills"
	SectionExperience   Section = "experience"
	SectionEducation    Section = "education"
	SectionFilters      Section = "filters"
	SectionProjects     Section = "projects"
	SectionContact      Section = "contact"
	SectionFooterSocial Section = "footer-social"
)

// Sections lists all sections in page order.
var Sections = []Section{
	SectionProfile,
	SectionSkills,
	SectionExperience,
	SectionEducation,
	SectionFilters,
	SectionProjects,
	SectionContact,
	SectionFooterSocial,
}

// DefaultThreshold is the fraction of the viewport height an element's top
// must cross before it is revealed.
const DefaultThreshold = 0.8

var rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "folio",
	Name:      "renders_total",
	Help:      "Rendered fragments by section.",
}, []string{"section"})

// Binding stamps rendered markup with the generation of the controller
// binding it belongs to. Events carrying an older generation are stale.
type Binding struct {
	Section    Section
	Generation uint64
}

// View is the view state a section render depends on.
type View struct {
	ActiveFilter string
	Hidden       map[string]bool
}

type Renderer struct {
	tmpl      *template.Template
	threshold string
}

type Option func(*Renderer)

// WithThreshold sets the reveal threshold advertised in section markup.
func WithThreshold(t float64) Option {
	return func(r *Renderer) {
		if t > 0 && t <= 1 {
			r.threshold = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
}

func New(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("folio").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}
	r := &Renderer{tmpl: tmpl, threshold: strconv.FormatFloat(DefaultThreshold, 'f', -1, 64)}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type sectionData struct {
	B         Binding
	Model     *content.Model
	Threshold string
	Active    string
	Hidden    map[string]bool
}

// Known reports whether name is a section this renderer can fill.
func Known(name Section) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

// Section renders one section. Unknown sections and a nil model render
// nothing so that other sections are unaffected.
func (r *Renderer) Section(name Section, m *content.Model, b Binding, v View) (template.HTML, error) {
	if m == nil || !Known(name) {
		return "", nil
	}
	b.Section = name
	data := sectionData{
		B:         b,
		Model:     m,
		Threshold: r.threshold,
		Active:    v.ActiveFilter,
		Hidden:    v.Hidden,
	}
	return r.execute(string(name), data)
}

// Page renders every section of shell. Sections absent from shell are
// skipped; a failing section is reported but does not stop the others.
func (r *Renderer) Page(shell []Section, m *content.Model, bindings map[Section]Binding, v View) (map[Section]template.HTML, error) {
	out := make(map[Section]template.HTML, len(shell))
	var firstErr error
	for _, name := range shell {
		html, err := r.Section(name, m, bindings[name], v)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[name] = html
	}
	return out, firstErr
}

type carouselData struct {
	B       Binding
	Project content.Project
	Index   int
}

type detailData struct {
	B        Binding
	Project  content.Project
	Carousel *carouselData
	Videos   []string
	Sections []content.DetailSection
}

// ProjectDetail renders the modal body for p with the carousel at index.
func (r *Renderer) ProjectDetail(p content.Project, index int, b Binding) (template.HTML, error) {
	data := detailData{
		B:        b,
		Project:  p,
		Carousel: newCarousel(p, index, b),
		Videos:   embeds(p.Videos),
		Sections: detailSections(p.Sections),
	}
	return r.execute("detail", data)
}

// Carousel renders the gallery of p alone. A project without images
// renders nothing.
func (r *Renderer) Carousel(p content.Project, index int, b Binding) (template.HTML, error) {
	data := newCarousel(p, index, b)
	if data == nil {
		return "", nil
	}
	return r.execute("carousel", data)
}

// ClosedModal renders the empty modal container. Replacing an open modal
// with it removes any embedded players.
func (r *Renderer) ClosedModal() (template.HTML, error) {
	return r.execute("modal-closed", nil)
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", name)
	}
	rendersTotal.WithLabelValues(name).Inc()
	return template.HTML(buf.String()), nil
}

func newCarousel(p content.Project, index int, b Binding) *carouselData {
	n := len(p.Gallery)
	if n == 0 {
		return nil
	}
	index %= n
	if index < 0 {
		index += n
	}
	return &carouselData{B: b, Project: p, Index: index}
}

// RevealIDs returns the data-reveal ids a section render emits, in document
// order.
func RevealIDs(name Section, m *content.Model) []string {
	if m == nil {
		return nil
	}
	var n int
	switch name {
	case SectionProfile:
		return []string{revealID(string(name), 0)}
	case SectionSkills:
		n = len(m.Skills)
	case SectionExperience:
		n = len(m.Experience)
	case SectionEducation:
		n = len(m.Education)
	case SectionProjects:
		n = len(m.Projects)
	case SectionContact:
		n = len(m.Contact)
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, revealID(string(name), i))
	}
	return ids
}

func revealID(section string, i int) string {
	return section + "-" + strconv.Itoa(i)
}

var youtubeID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// embedURL converts a video reference into an embeddable https URL. Bare
// YouTube ids and watch/short links are rewritten; other https URLs pass
// through; anything else is rejected.
func embedURL(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if youtubeID.MatchString(ref) {
		return "https://www.youtube.com/embed/" + ref + "?rel=0", true
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return "", false
	}
	host := strings.TrimPrefix(u.Host, "www.")
	switch {
	case host == "youtube.com" && u.Path == "/watch":
		if id := u.Query().Get("v"); youtubeID.MatchString(id) {
			return "https://www.youtube.com/embed/" + id + "?rel=0", true
		}
		return "", false
	case host == "youtu.be":
		if id := strings.TrimPrefix(u.Path, "/"); youtubeID.MatchString(id) {
			return "https://www.youtube.com/embed/" + id + "?rel=0", true
		}
		return "", false
	}
	return u.String(), true
}

func embeds(refs []string) []string {
	var out []string
	for _, ref := range refs {
		if u, ok := embedURL(ref); ok {
			out = append(out, u)
		}
	}
	return out
}

// detailSections drops sections that would render empty and raw iframe
// markup, which is never inserted verbatim.
func detailSections(sections []content.DetailSection) []content.DetailSection {
	var out []content.DetailSection
	for _, s := range sections {
		switch s.Type {
		case "images":
			if len(s.Images) == 0 {
				continue
			}
		case "video":
			u, ok := embedURL(s.Content)
			if !ok {
				continue
			}
			s.Content = u
		case "iframe":
			continue
		default:
			if len(paragraphs(s.Content)) == 0 {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
