package content

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// flexString accepts both JSON strings and numbers. Some data sets use
// numeric project ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Errorf("id must be a string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// isArray reports whether a document's top-level value is a JSON array.
func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeProfile(raw json.RawMessage) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "failed to parse profile")
	}
	return &p, nil
}

type skillJSON struct {
	Name        string `json:"name"`
	Level       *int   `json:"level"`
	Proficiency *int   `json:"proficiency"`
}

type skillGroupJSON struct {
	Title  string      `json:"title"`
	Icon   string      `json:"icon"`
	Skills []skillJSON `json:"skills"`
}

type skillsDoc struct {
	SkillGroups []skillGroupJSON `json:"skillGroups"`
	Highlights  []Highlight      `json:"highlights"`
	Summary     string           `json:"summary"`
}

func decodeSkills(raw json.RawMessage) (doc skillsDoc, err error) {
	if isArray(raw) {
		err = json.Unmarshal(raw, &doc.SkillGroups)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		err = errors.Wrap(err, "failed to parse skills")
	}
	return doc, err
}

func (g skillGroupJSON) toSkillGroup() SkillGroup {
	group := SkillGroup{Title: g.Title, Icon: g.Icon}
	for _, s := range g.Skills {
		skill := Skill{Name: s.Name}
		switch {
		case s.Proficiency != nil:
			skill.Proficiency = *s.Proficiency
		case s.Level != nil:
			skill.Proficiency = *s.Level
		}
		group.Skills = append(group.Skills, skill)
	}
	return group
}

type refJSON struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	AndroidLink string `json:"androidLink"`
	IOSLink     string `json:"iosLink"`
	VideoURL    string `json:"videoUrl"`
	Links       []Link `json:"links"`
}

func (r *refJSON) toRef() ProjectRef {
	ref := ProjectRef{Name: r.Name, Links: r.Links}
	for _, l := range []Link{
		{Text: "Website", URL: r.URL, Kind: "external"},
		{Text: "Android", URL: r.AndroidLink, Kind: "android"},
		{Text: "iOS", URL: r.IOSLink, Kind: "ios"},
		{Text: "Video", URL: r.VideoURL, Kind: "video"},
	} {
		if l.URL != "" {
			ref.Links = append(ref.Links, l)
		}
	}
	return ref
}

type detailJSON struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type experienceJSON struct {
	Type              Kind            `json:"type"`
	Kind              Kind            `json:"kind"`
	Title             string          `json:"title"`
	Position          string          `json:"position"`
	Degree            string          `json:"degree"`
	Organization      string          `json:"organization"`
	Company           string          `json:"company"`
	School            string          `json:"school"`
	OrganizationURL   string          `json:"organizationUrl"`
	URL               string          `json:"url"`
	Location          string          `json:"location"`
	Period            string          `json:"period"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	StartYear         string          `json:"startYear"`
	EndYear           string          `json:"endYear"`
	Description       json.RawMessage `json:"description"`
	Highlights        []string        `json:"highlights"`
	Details           []detailJSON    `json:"details"`
	Honors            []string        `json:"honors"`
	Skills            []string        `json:"skills"`
	Projects          []refJSON       `json:"projects"`
	FeaturedProject   *refJSON        `json:"featuredProject"`
	GraduationProject *refJSON        `json:"graduationProject"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func period(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " - " + end
	default:
		return firstNonEmpty(start, end)
	}
}

func (e experienceJSON) toEntry(defaultKind Kind) (ExperienceEntry, error) {
	entry := ExperienceEntry{
		Kind:            Kind(strings.ToLower(string(firstNonEmpty(string(e.Type), string(e.Kind), string(defaultKind))))),
		Title:           firstNonEmpty(e.Title, e.Position, e.Degree),
		Organization:    firstNonEmpty(e.Organization, e.Company, e.School),
		OrganizationURL: firstNonEmpty(e.OrganizationURL, e.URL),
		Location:        e.Location,
		Period:          firstNonEmpty(e.Period, period(e.StartDate, e.EndDate), period(e.StartYear, e.EndYear)),
		Highlights:      append([]string(nil), e.Highlights...),
		Skills:          e.Skills,
	}

	if len(e.Description) > 0 && !bytes.Equal(e.Description, []byte("null")) {
		if isArray(e.Description) {
			var bullets []string
			if err := json.Unmarshal(e.Description, &bullets); err != nil {
				return entry, errors.Wrap(err, "description must be a string or list of strings")
			}
			entry.Highlights = append(entry.Highlights, bullets...)
		} else if err := json.Unmarshal(e.Description, &entry.Description); err != nil {
			return entry, errors.Wrap(err, "description must be a string or list of strings")
		}
	}

	for _, d := range e.Details {
		entry.Highlights = append(entry.Highlights, strings.TrimSpace(d.Label+": "+d.Value))
	}
	entry.Highlights = append(entry.Highlights, e.Honors...)

	for i := range e.Projects {
		entry.Projects = append(entry.Projects, e.Projects[i].toRef())
	}
	if e.FeaturedProject != nil {
		entry.Projects = append(entry.Projects, e.FeaturedProject.toRef())
	}
	if e.GraduationProject != nil {
		entry.Projects = append(entry.Projects, e.GraduationProject.toRef())
	}
	return entry, nil
}

type experienceDoc struct {
	Experiences  []experienceJSON `json:"experiences"`
	Certificates []string         `json:"certificates"`
	Honors       []string         `json:"honors"`
	Languages    []Language       `json:"languages"`
}

func decodeExperience(raw json.RawMessage, resource Resource) (doc experienceDoc, err error) {
	if isArray(raw) {
		err = json.Unmarshal(raw, &doc.Experiences)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse %s", resource)
	}
	return doc, err
}

type linkJSON struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Kind string `json:"kind"`
}

type projectJSON struct {
	ID               flexString      `json:"id"`
	Name             string          `json:"name"`
	Title            string          `json:"title"`
	Category         string          `json:"category"`
	Tags             []string        `json:"tags"`
	Tech             []string        `json:"tech"`
	FilterTags       []string        `json:"filterTags"`
	ShortDescription string          `json:"shortDescription"`
	Description      string          `json:"description"`
	LongDescription  string          `json:"longDescription"`
	Image            string          `json:"image"`
	Gallery          []string        `json:"gallery"`
	Stats            *ProjectStats   `json:"stats"`
	Stars            *int            `json:"stars"`
	Forks            *int            `json:"forks"`
	Links            []linkJSON      `json:"links"`
	Link             string          `json:"link"`
	Features         []string        `json:"features"`
	SubProjects      []SubProject    `json:"subProjects"`
	Videos           []string        `json:"videos"`
	YoutubeVideo     string          `json:"youtubeVideo"`
	Sections         []DetailSection `json:"sections"`
	Status           string          `json:"status"`
}

func (p projectJSON) toProject() Project {
	project := Project{
		ID:          strings.TrimSpace(string(p.ID)),
		Name:        firstNonEmpty(p.Name, p.Title),
		Category:    p.Category,
		Tags:        p.Tags,
		FilterTags:  p.FilterTags,
		Image:       p.Image,
		Gallery:     p.Gallery,
		Stats:       p.Stats,
		Features:    p.Features,
		SubProjects: p.SubProjects,
		Videos:      p.Videos,
		Sections:    p.Sections,
		Status:      p.Status,
	}
	if len(project.Tags) == 0 {
		project.Tags = p.Tech
	}

	// Two description layouts are in use: short "description" with
	// "longDescription", or "shortDescription" with a long "description".
	if p.LongDescription != "" {
		project.Description = p.LongDescription
		project.ShortDescription = firstNonEmpty(p.ShortDescription, p.Description)
	} else {
		project.Description = p.Description
		project.ShortDescription = firstNonEmpty(p.ShortDescription, p.Description)
	}

	if project.Stats == nil && (p.Stars != nil || p.Forks != nil) {
		project.Stats = &ProjectStats{}
		if p.Stars != nil {
			project.Stats.Stars = *p.Stars
		}
		if p.Forks != nil {
			project.Stats.Forks = *p.Forks
		}
	}

	for _, l := range p.Links {
		project.Links = append(project.Links, Link{Text: l.Text, URL: l.URL, Kind: firstNonEmpty(l.Kind, l.Type)})
	}
	if p.Link != "" {
		project.Links = append(project.Links, Link{Text: "View Project", URL: p.Link, Kind: "external"})
	}
	if p.YoutubeVideo != "" {
		project.Videos = append(project.Videos, p.YoutubeVideo)
	}
	return project
}

type projectsDoc struct {
	Categories []Category    `json:"categories"`
	Projects   []projectJSON `json:"projects"`
}

func decodeProjects(raw json.RawMessage) (doc projectsDoc, err error) {
	if isArray(raw) {
		err = json.Unmarshal(raw, &doc.Projects)
	} else {
		err = json.Unmarshal(raw, &doc)
	}
	if err != nil {
		err = errors.Wrap(err, "failed to parse projects")
	}
	return doc, err
}

func decodeContact(raw json.RawMessage) ([]ContactChannel, error) {
	var channels []ContactChannel
	if err := json.Unmarshal(raw, &channels); err != nil {
		return nil, errors.Wrap(err, "failed to parse contact")
	}
	return channels, nil
}
