package content

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(pairs ...string) map[Resource]json.RawMessage {
	out := map[Resource]json.RawMessage{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[Resource(pairs[i])] = json.RawMessage(pairs[i+1])
	}
	return out
}

func TestBuildProjectsArray(t *testing.T) {
	m, err := Build(docs("projects", `[
		{"id":"a","name":"Alpha","image":"a.png","filterTags":["Unity","Mobile","unity"]},
		{"id":"b","name":"Beta","category":"Web"}
	]`))
	require.NoError(t, err)
	require.Len(t, m.Projects, 2)

	a, ok := m.Project("a")
	require.True(t, ok)
	assert.Equal(t, []string{"a.png"}, a.Gallery, "gallery falls back to the primary image")
	assert.Equal(t, []string{"Unity", "Mobile"}, a.FilterTags)

	b, ok := m.Project("b")
	require.True(t, ok)
	assert.Equal(t, []string{"Web"}, b.FilterTags, "filter tags fall back to category")
	assert.Empty(t, b.Gallery)

	assert.Equal(t, []string{"Unity", "Mobile", "Web"}, m.Tags())

	_, ok = m.Project("missing")
	assert.False(t, ok)
}

func TestBuildProjectsDocumentShape(t *testing.T) {
	m, err := Build(docs("projects", `{
		"categories":[{"id":"games","label":"Games","icon":"Gamepad"}],
		"projects":[{"id":7,"title":"Seven","category":"games","description":"short","longDescription":"long",
			"stars":3,"forks":1,"link":"https://example.com","tech":["Go"],"youtubeVideo":"dQw4w9WgXcQ"}]
	}`))
	require.NoError(t, err)
	require.Len(t, m.Categories, 1)

	p, ok := m.Project("7")
	require.True(t, ok, "numeric ids are accepted")
	assert.Equal(t, "Seven", p.Name)
	assert.Equal(t, "short", p.ShortDescription)
	assert.Equal(t, "long", p.Description)
	require.NotNil(t, p.Stats)
	assert.Equal(t, ProjectStats{Stars: 3, Forks: 1}, *p.Stats)
	assert.Equal(t, []Link{{Text: "View Project", URL: "https://example.com", Kind: "external"}}, p.Links)
	assert.Equal(t, []string{"Go"}, p.Tags)
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, p.Videos)
}

func TestBuildDropsAllSentinelTag(t *testing.T) {
	m, err := Build(docs("projects", `[
		{"id":"a","name":"Alpha","filterTags":["All","Unity","all"]},
		{"id":"b","name":"Beta","filterTags":["ALL"],"category":"Web"},
		{"id":"c","name":"Gamma","category":"all"}
	]`))
	require.NoError(t, err)

	a, _ := m.Project("a")
	assert.Equal(t, []string{"Unity"}, a.FilterTags)
	b, _ := m.Project("b")
	assert.Equal(t, []string{"Web"}, b.FilterTags, "only the sentinel left, so the category applies")
	c, _ := m.Project("c")
	assert.Empty(t, c.FilterTags)
	assert.Equal(t, []string{"Unity", "Web"}, m.Tags())
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	_, err := Build(docs("projects", `[{"id":"a","name":"A"},{"id":"a","name":"Again"}]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateProjectID))
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name string
		docs map[Resource]json.RawMessage
	}{
		{"proficiency above 100", docs("skills", `[{"title":"Go","skills":[{"name":"x","level":101}]}]`)},
		{"negative proficiency", docs("skills", `[{"title":"Go","skills":[{"name":"x","proficiency":-1}]}]`)},
		{"negative stars", docs("projects", `[{"id":"a","name":"A","stats":{"stars":-2,"forks":0}}]`)},
		{"project without id", docs("projects", `[{"name":"A"}]`)},
		{"unknown kind", docs("experience", `[{"type":"hobby","title":"x"}]`)},
		{"contact without url", docs("contact", `[{"label":"Mail"}]`)},
		{"profile without name", docs("profile", `{"title":"dev"}`)},
		{"malformed json", docs("profile", `{"name":`)},
		{"unknown resource", docs("weather", `{}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.docs)
			assert.Error(t, err)
		})
	}
}

func TestBuildSkills(t *testing.T) {
	m, err := Build(docs("skills", `{"skillGroups":[{"title":"Engines","icon":"Cpu","skills":[
		{"name":"Unity","level":95},{"name":"Godot","proficiency":0}]}],"summary":"s"}`))
	require.NoError(t, err)
	require.Len(t, m.Skills, 1)
	assert.Equal(t, []Skill{{Name: "Unity", Proficiency: 95}, {Name: "Godot", Proficiency: 0}}, m.Skills[0].Skills)
	assert.Equal(t, "s", m.SkillSummary)
}

func TestBuildExperienceShapes(t *testing.T) {
	m, err := Build(docs(
		"experience", `{"experiences":[
			{"type":"work","title":"Lead","organization":"Studio","period":"2020 - Now","description":"Built games",
			 "featuredProject":{"name":"Kings","androidLink":"https://play.example/k"}},
			{"type":"achievement","title":"Award","organization":"Jam"}
		],"certificates":["PMP"],"languages":[{"name":"English","level":"Fluent"}]}`,
		"education", `[{"school":"WGU","degree":"BSc","startYear":"2019","endYear":"2023",
			"details":[{"label":"GPA","value":"3.8"}]}]`,
	))
	require.NoError(t, err)

	require.Len(t, m.Experience, 2)
	lead := m.Experience[0]
	assert.Equal(t, KindWork, lead.Kind)
	assert.Equal(t, "Built games", lead.Description)
	require.Len(t, lead.Projects, 1)
	assert.Equal(t, "Kings", lead.Projects[0].Name)
	assert.Equal(t, "android", lead.Projects[0].Links[0].Kind)
	assert.Equal(t, KindAchievement, m.Experience[1].Kind)

	require.Len(t, m.Education, 1)
	edu := m.Education[0]
	assert.Equal(t, KindEducation, edu.Kind)
	assert.Equal(t, "BSc", edu.Title)
	assert.Equal(t, "WGU", edu.Organization)
	assert.Equal(t, "2019 - 2023", edu.Period)
	assert.Equal(t, []string{"GPA: 3.8"}, edu.Highlights)

	assert.Equal(t, []string{"PMP"}, m.Certificates)
}

func TestBuildLegacyExperienceBullets(t *testing.T) {
	m, err := Build(docs("experience", `[{"company":"Target","position":"Expert","startDate":"Aug 2023",
		"endDate":"Present","description":["one","two"],"skills":["Retail"]}]`))
	require.NoError(t, err)
	require.Len(t, m.Experience, 1)
	e := m.Experience[0]
	assert.Equal(t, "Expert", e.Title)
	assert.Equal(t, "Target", e.Organization)
	assert.Equal(t, "Aug 2023 - Present", e.Period)
	assert.Empty(t, e.Description)
	assert.Equal(t, []string{"one", "two"}, e.Highlights)
}

func TestModelOf(t *testing.T) {
	m := &Model{}
	got, ok := ModelOf(Loaded{Model: m})
	assert.True(t, ok)
	assert.Same(t, m, got)

	_, ok = ModelOf(NotLoaded{})
	assert.False(t, ok)
	_, ok = ModelOf(Failed{Err: errors.New("boom")})
	assert.False(t, ok)
	_, ok = ModelOf(Loaded{})
	assert.False(t, ok)
}
