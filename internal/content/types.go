package content

// Resource names a JSON document the site is built from.
type Resource string

const (
	ResourceProfile    Resource = "profile"
	ResourceSkills     Resource = "skills"
	ResourceExperience Resource = "experience"
	ResourceEducation  Resource = "education"
	ResourceProjects   Resource = "projects"
	ResourceContact    Resource = "contact"
)

// Resources lists every resource in the order sections appear on the page.
var Resources = []Resource{
	ResourceProfile,
	ResourceSkills,
	ResourceExperience,
	ResourceEducation,
	ResourceProjects,
	ResourceContact,
}

// Kind discriminates experience timeline entries.
type Kind string

const (
	KindWork        Kind = "work"
	KindEducation   Kind = "education"
	KindAchievement Kind = "achievement"
)

type Profile struct {
	Name         string            `json:"name" validate:"required"`
	Title        string            `json:"title"`
	Location     string            `json:"location"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Tagline      string            `json:"tagline"`
	Bio          string            `json:"bio"`
	Social       map[string]string `json:"social"`
	Availability Availability      `json:"availability"`
	Stats        ProfileStats      `json:"stats"`
}

type Availability struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

type ProfileStats struct {
	YearsExperience int `json:"yearsExperience" validate:"gte=0"`
	PublicRepos     int `json:"publicRepos" validate:"gte=0"`
	GithubStars     int `json:"githubStars" validate:"gte=0"`
	TotalForks      int `json:"totalForks" validate:"gte=0"`
}

type SkillGroup struct {
	Title  string  `json:"title" validate:"required"`
	Icon   string  `json:"icon"`
	Skills []Skill `json:"skills" validate:"dive"`
}

// Skill carries a proficiency percentage in [0, 100].
type Skill struct {
	Name        string `json:"name" validate:"required"`
	Proficiency int    `json:"proficiency" validate:"gte=0,lte=100"`
}

type Highlight struct {
	Icon        string `json:"icon"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type ExperienceEntry struct {
	Kind            Kind         `json:"type" validate:"oneof=work education achievement"`
	Title           string       `json:"title" validate:"required"`
	Organization    string       `json:"organization"`
	OrganizationURL string       `json:"organizationUrl,omitempty"`
	Location        string       `json:"location"`
	Period          string       `json:"period"`
	Description     string       `json:"description"`
	Highlights      []string     `json:"highlights,omitempty"`
	Skills          []string     `json:"skills,omitempty"`
	Projects        []ProjectRef `json:"projects,omitempty"`
}

// ProjectRef is a project mentioned from a timeline entry.
type ProjectRef struct {
	Name  string `json:"name"`
	Links []Link `json:"links,omitempty"`
}

type Language struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type Project struct {
	ID               string          `json:"id" validate:"required"`
	Name             string          `json:"name" validate:"required"`
	Category         string          `json:"category"`
	Tags             []string        `json:"tags,omitempty"`
	FilterTags       []string        `json:"filterTags,omitempty"`
	ShortDescription string          `json:"shortDescription"`
	Description      string          `json:"description"`
	Image            string          `json:"image"`
	Gallery          []string        `json:"gallery,omitempty"`
	Stats            *ProjectStats   `json:"stats,omitempty"`
	Links            []Link          `json:"links,omitempty" validate:"dive"`
	Features         []string        `json:"features,omitempty"`
	SubProjects      []SubProject    `json:"subProjects,omitempty"`
	Videos           []string        `json:"videos,omitempty"`
	Sections         []DetailSection `json:"sections,omitempty"`
	Status           string          `json:"status,omitempty"`
}

type ProjectStats struct {
	Stars int `json:"stars" validate:"gte=0"`
	Forks int `json:"forks" validate:"gte=0"`
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url" validate:"required"`
	Kind string `json:"type,omitempty"`
}

type SubProject struct {
	Title       string   `json:"title"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description"`
}

// DetailSection is an extra block in the project detail view.
type DetailSection struct {
	Title   string   `json:"title"`
	Type    string   `json:"type"`
	Content string   `json:"content,omitempty"`
	Images  []string `json:"images,omitempty"`
}

type ContactChannel struct {
	Label       string `json:"label" validate:"required"`
	Icon        string `json:"icon"`
	URL         string `json:"url" validate:"required"`
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description,omitempty"`
}
