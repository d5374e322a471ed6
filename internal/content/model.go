package content

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ErrDuplicateProjectID is returned by Build when two projects share an id.
var ErrDuplicateProjectID = errors.New("duplicate project id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Model is the normalized content of the site. It is produced once by Build
// and never mutated afterwards; renderers and controllers share it read-only.
type Model struct {
	Profile      *Profile
	Skills       []SkillGroup
	Highlights   []Highlight
	SkillSummary string
	Experience   []ExperienceEntry
	Education    []ExperienceEntry
	Certificates []string
	Honors       []string
	Languages    []Language
	Projects     []Project
	Categories   []Category
	Contact      []ContactChannel

	index map[string]int
	tags  []string
}

// Build decodes, normalizes and validates the documents. Resources missing
// from docs leave their part of the model empty.
func Build(docs map[Resource]json.RawMessage) (*Model, error) {
	m := &Model{index: map[string]int{}}

	for name := range docs {
		if !known(name) {
			return nil, errors.Errorf("unknown resource %q", name)
		}
	}

	if raw, ok := docs[ResourceProfile]; ok {
		profile, err := decodeProfile(raw)
		if err != nil {
			return nil, err
		}
		m.Profile = profile
	}

	if raw, ok := docs[ResourceSkills]; ok {
		doc, err := decodeSkills(raw)
		if err != nil {
			return nil, err
		}
		for _, g := range doc.SkillGroups {
			m.Skills = append(m.Skills, g.toSkillGroup())
		}
		m.Highlights = doc.Highlights
		m.SkillSummary = doc.Summary
	}

	if raw, ok := docs[ResourceExperience]; ok {
		doc, err := decodeExperience(raw, ResourceExperience)
		if err != nil {
			return nil, err
		}
		for i, e := range doc.Experiences {
			entry, err := e.toEntry(KindWork)
			if err != nil {
				return nil, errors.Wrapf(err, "experience entry %d", i)
			}
			m.Experience = append(m.Experience, entry)
		}
		m.Certificates = doc.Certificates
		m.Honors = doc.Honors
		m.Languages = doc.Languages
	}

	if raw, ok := docs[ResourceEducation]; ok {
		doc, err := decodeExperience(raw, ResourceEducation)
		if err != nil {
			return nil, err
		}
		for i, e := range doc.Experiences {
			entry, err := e.toEntry(KindEducation)
			if err != nil {
				return nil, errors.Wrapf(err, "education entry %d", i)
			}
			m.Education = append(m.Education, entry)
		}
	}

	if raw, ok := docs[ResourceProjects]; ok {
		doc, err := decodeProjects(raw)
		if err != nil {
			return nil, err
		}
		m.Categories = doc.Categories
		for _, p := range doc.Projects {
			m.Projects = append(m.Projects, normalizeProject(p.toProject()))
		}
	}

	if raw, ok := docs[ResourceContact]; ok {
		channels, err := decodeContact(raw)
		if err != nil {
			return nil, err
		}
		m.Contact = channels
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for i, p := range m.Projects {
		m.index[p.ID] = i
		for _, tag := range p.FilterTags {
			key := strings.ToLower(tag)
			if !seen[key] {
				seen[key] = true
				m.tags = append(m.tags, tag)
			}
		}
	}
	return m, nil
}

func known(name Resource) bool {
	for _, r := range Resources {
		if r == name {
			return true
		}
	}
	return false
}

// normalizeProject fills derived fields: the gallery falls back to the
// primary image and filter tags fall back to the category. The All sentinel
// is never kept as a tag.
func normalizeProject(p Project) Project {
	if len(p.Gallery) == 0 && p.Image != "" {
		p.Gallery = []string{p.Image}
	}
	var tags []string
	for _, tag := range p.FilterTags {
		if !IsAll(tag) {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 && !IsAll(p.Category) {
		tags = []string{p.Category}
	}
	p.FilterTags = dedupeFold(tags)
	return p
}

func dedupeFold(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func (m *Model) validate() error {
	if m.Profile != nil {
		if err := validate.Struct(m.Profile); err != nil {
			return errors.Wrap(err, "invalid profile")
		}
	}
	for i := range m.Skills {
		if err := validate.Struct(&m.Skills[i]); err != nil {
			return errors.Wrapf(err, "invalid skill group %d", i)
		}
	}
	for i := range m.Experience {
		if err := validate.Struct(&m.Experience[i]); err != nil {
			return errors.Wrapf(err, "invalid experience entry %d", i)
		}
	}
	for i := range m.Education {
		if err := validate.Struct(&m.Education[i]); err != nil {
			return errors.Wrapf(err, "invalid education entry %d", i)
		}
	}
	ids := make(map[string]int, len(m.Projects))
	for i := range m.Projects {
		p := &m.Projects[i]
		if err := validate.Struct(p); err != nil {
			return errors.Wrapf(err, "invalid project %d", i)
		}
		if p.Stats != nil {
			if err := validate.Struct(p.Stats); err != nil {
				return errors.Wrapf(err, "invalid stats for project %s", p.ID)
			}
		}
		if prev, dup := ids[p.ID]; dup {
			return errors.Wrapf(ErrDuplicateProjectID, "%q at indexes %d and %d", p.ID, prev, i)
		}
		ids[p.ID] = i
	}
	for i := range m.Contact {
		if err := validate.Struct(&m.Contact[i]); err != nil {
			return errors.Wrapf(err, "invalid contact channel %d", i)
		}
	}
	return nil
}

// Project returns the project with the given id.
func (m *Model) Project(id string) (Project, bool) {
	if m == nil {
		return Project{}, false
	}
	i, ok := m.index[id]
	if !ok {
		return Project{}, false
	}
	return m.Projects[i], true
}

// Tags returns the union of project filter tags in first-seen order.
func (m *Model) Tags() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.tags...)
}

// HasGalleryControls reports whether the gallery needs prev/next controls.
func (p Project) HasGalleryControls() bool { return len(p.Gallery) > 1 }

// AllTag is the filter sentinel meaning "no filter". It is never a real tag.
const AllTag = "All"

// IsAll reports whether tag is the no-filter sentinel.
func IsAll(tag string) bool {
	tag = strings.TrimSpace(tag)
	return tag == "" || strings.EqualFold(tag, AllTag)
}
