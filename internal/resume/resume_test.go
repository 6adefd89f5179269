package resume

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSkill_RejectsCaseInsensitiveDuplicate(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddSkill(Skill{Name: "react", Rating: 4}))

	err := doc.AddSkill(Skill{Name: "React", Rating: 5})

	assert.ErrorIs(t, err, ErrDuplicateSkill)
	assert.Len(t, doc.Skills, 1)
	assert.Equal(t, 4, doc.Skills[0].Rating)
}

func TestAddSkill_Defaults(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddSkill(Skill{Name: "  Go  "}))

	require.Len(t, doc.Skills, 1)
	assert.Equal(t, Skill{Name: "Go", Category: DefaultSkillCategory, Rating: DefaultSkillRating}, doc.Skills[0])
}

func TestAddSkill_InvalidInputLeavesDocumentUnchanged(t *testing.T) {
	tests := []Skill{
		{Name: "   "},
		{Name: "Go", Rating: 6},
		{Name: "Go", Rating: -1},
		{Name: "Go", Rating: 3, YearsOfExperience: -2},
	}
	for _, s := range tests {
		doc := NewDocument()
		err := doc.AddSkill(s)
		assert.ErrorIs(t, err, ErrInvalidSkill, "skill %+v", s)
		assert.Empty(t, doc.Skills)
	}
}

func TestRemoveSkill(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddSkill(Skill{Name: "Go"}))
	require.NoError(t, doc.AddSkill(Skill{Name: "Rust"}))

	assert.True(t, doc.RemoveSkill("GO"))
	assert.False(t, doc.RemoveSkill("Go"))
	require.Len(t, doc.Skills, 1)
	assert.Equal(t, "Rust", doc.Skills[0].Name)
}

func TestSkillsByCategory(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.AddSkill(Skill{Name: "Go", Category: "Backend"}))
	require.NoError(t, doc.AddSkill(Skill{Name: "Figma"}))
	require.NoError(t, doc.AddSkill(Skill{Name: "Rust", Category: "Backend"}))

	groups := doc.SkillsByCategory()
	assert.Len(t, groups["Backend"], 2)
	assert.Equal(t, "Figma", groups[DefaultSkillCategory][0].Name)
}

func TestValidate_DateOrder(t *testing.T) {
	doc := NewDocument()
	doc.Experience = []Experience{{Title: "Engineer", StartDate: "2021-06-01", EndDate: "2020-01-01"}}

	errs := Validate(doc)

	require.Len(t, errs, 1)
	assert.Equal(t, SectionExperience, errs[0].Section)
	assert.Equal(t, 0, errs[0].Index)
	assert.Equal(t, "endDate", errs[0].Field)
	assert.True(t, errs[0].Blocking())
	// the document itself is untouched
	assert.Equal(t, "2020-01-01", doc.Experience[0].EndDate)
}

func TestValidate_CurrentlyWorkingIgnoresEndDate(t *testing.T) {
	doc := NewDocument()
	doc.Experience = []Experience{{StartDate: "2021-06-01", EndDate: "2020-01-01", CurrentlyWorking: true}}

	assert.Empty(t, Validate(doc))
}

func TestValidate_EducationDatesAndFormats(t *testing.T) {
	doc := NewDocument()
	doc.Education = []Education{
		{StartDate: "2019", EndDate: "2018-09"},
		{StartDate: "not a date", GradeType: "GPA"},
		{GradeType: "Stars"},
	}

	errs := Validate(doc)

	require.Len(t, errs, 3)
	assert.Equal(t, FieldError{Section: SectionEducation, Index: 0, Field: "endDate", Message: "end date must be after start date"}, errs[0])
	assert.Equal(t, "startDate", errs[1].Field)
	assert.Equal(t, "invalid date", errs[1].Message)
	assert.Equal(t, "gradeType", errs[2].Field)
}

func TestValidate_NonBlockingSections(t *testing.T) {
	doc := NewDocument()
	doc.Personal.Email = "not-an-email"
	doc.Skills = []Skill{{Name: "Go", Rating: 9}}
	doc.Projects = []Project{{ProjectURL: "nope"}}

	errs := Validate(doc)

	require.Len(t, errs, 3)
	blocking := errs.Blocking()
	require.Len(t, blocking, 1)
	assert.Equal(t, SectionPersonal, blocking[0].Section)
	assert.Equal(t, "email", blocking[0].Field)
	assert.Equal(t, -1, blocking[0].Index)
	assert.Contains(t, errs.Error(), "skills[0].rating")
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-02-29", "2024-02", "2024", "2024-02-01T10:00:00Z"} {
		_, ok := ParseDate(s)
		assert.True(t, ok, s)
	}
	_, ok := ParseDate("")
	assert.False(t, ok)
	_, ok = ParseDate("02/2024")
	assert.False(t, ok)
}

func TestMergeDefaults(t *testing.T) {
	doc := MergeDefaults(Partial{})
	assert.Equal(t, DefaultTitle, doc.Title)
	assert.NotNil(t, doc.Experience)
	assert.NotNil(t, doc.Skills)
	assert.Empty(t, doc.ID)

	blank := "  "
	assert.Equal(t, UntitledTitle, MergeDefaults(Partial{Title: &blank}).Title)

	summary := "<b>hi</b>"
	doc = MergeDefaults(Partial{Summary: &summary, Skills: []Skill{{Name: "Go"}}})
	assert.Equal(t, summary, doc.Summary)
	assert.Len(t, doc.Skills, 1)
}

func TestClean(t *testing.T) {
	doc := NewDocument()
	doc.Title = "  "
	doc.Personal = Personal{FirstName: " Jane ", Email: " Jane@Example.COM "}
	doc.Skills = []Skill{{Name: " Go "}, {Name: "  "}}
	doc.Experience = nil

	out := Clean(doc)

	assert.Equal(t, UntitledTitle, out.Title)
	assert.Equal(t, "Jane", out.Personal.FirstName)
	assert.Equal(t, "jane@example.com", out.Personal.Email)
	require.Len(t, out.Skills, 1)
	assert.Equal(t, Skill{Name: "Go", Category: DefaultSkillCategory, Rating: DefaultSkillRating}, out.Skills[0])
	assert.NotNil(t, out.Experience)
	// input untouched
	assert.Equal(t, " Jane ", doc.Personal.FirstName)
	assert.Len(t, doc.Skills, 2)
}

func TestClone_DoesNotAlias(t *testing.T) {
	doc := NewDocument()
	doc.Skills = append(doc.Skills, Skill{Name: "Go"})

	cp := doc.Clone()
	cp.Skills[0].Name = "Rust"

	assert.Equal(t, "Go", doc.Skills[0].Name)
	assert.NotNil(t, cp.Projects)
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "CV (Copy)", CopyTitle("CV"))
	assert.Equal(t, "CV", UniqueTitle("CV", []string{"Other"}))
	assert.Equal(t, "CV (2)", UniqueTitle("CV", []string{"CV", "CV (1)"}))
	assert.Equal(t, "Jane Doe Resume", GenerateTitle(Personal{FirstName: "Jane", LastName: "Doe"}, nil))
	assert.Equal(t, "Untitled Resume (1)", GenerateTitle(Personal{FirstName: "Jane"}, []string{UntitledTitle}))
}

func TestToListItem(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := NewDocument()
	doc.ID = "r1"
	doc.Personal = Personal{FirstName: "Jane", LastName: "Doe", JobTitle: "Engineer", Email: "j@d.io"}
	doc.Summary = "<b>Builds</b>   things<br/>at scale"
	doc.LastUpdated = now

	item := ToListItem(doc)

	assert.Equal(t, "r1", item.ID)
	assert.Equal(t, ListPersonal{FirstName: "Jane", LastName: "Doe", JobTitle: "Engineer"}, item.Personal)
	assert.Equal(t, "Builds things at scale", item.Preview)
	assert.Equal(t, now, item.LastUpdated)
}

func TestPreviewText_FallsBackAndTruncates(t *testing.T) {
	doc := NewDocument()
	doc.Experience = []Experience{{Title: "Engineer", CompanyName: "Acme"}}
	assert.Equal(t, "Engineer at Acme", PreviewText(doc))

	doc.Summary = strings.Repeat("a", previewRunes+10)
	preview := PreviewText(doc)
	assert.Equal(t, previewRunes+1, len([]rune(preview)))
	assert.True(t, strings.HasSuffix(preview, "…"))
}

func TestImportJSON_StripsIdentity(t *testing.T) {
	doc := NewDocument()
	doc.ID = "r1"
	doc.Title = "CV"
	doc.Favorite = true
	doc.LastUpdated = time.Now()
	doc.Skills = []Skill{{Name: "Go", Category: "Backend", Rating: 5}}

	data, err := ExportJSON(doc)
	require.NoError(t, err)

	imported, err := ImportJSON(data, "")
	require.NoError(t, err)
	assert.Empty(t, imported.ID)
	assert.True(t, imported.LastUpdated.IsZero())
	assert.False(t, imported.Favorite)
	assert.Equal(t, "CV", imported.Title)
	assert.Equal(t, doc.Skills, imported.Skills)

	_, err = ImportJSON([]byte("{"), "")
	assert.Error(t, err)
}

func TestImportJSON_Title(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		title string
		want  string
	}{
		{"keeps imported title", `{"title":"CV"}`, "", "CV"},
		{"override wins", `{"title":"CV"}`, " Backend CV ", "Backend CV"},
		{"missing title", `{"summary":"x"}`, "", ImportedTitle},
		{"blank title", `{"title":"  "}`, "  ", ImportedTitle},
		{"override without title", `{}`, "Fresh", "Fresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ImportJSON([]byte(tt.data), tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func sampleDocument() Document {
	doc := NewDocument()
	doc.Title = "CV"
	doc.Personal = Personal{FirstName: "Jane", LastName: "Doe", JobTitle: "Engineer", Email: "jane@doe.io", Phone: "123"}
	doc.Summary = "Tom &amp; <b>Jerry</b>"
	doc.Experience = []Experience{{
		Title:            "Engineer",
		CompanyName:      "Acme",
		StartDate:        "2020-01",
		CurrentlyWorking: true,
		WorkSummary:      "<ul><li>Shipped</li><li>Scaled</li></ul>",
	}}
	doc.Skills = []Skill{{Name: "Go", Category: "Backend", Rating: 5}}
	doc.Projects = []Project{{ProjectName: "Tool", ProjectURL: "https://tool.dev"}}
	return doc
}

func TestExportText(t *testing.T) {
	out := ExportText(sampleDocument())

	assert.True(t, strings.HasPrefix(out, "Jane Doe\nEngineer\njane@doe.io | 123\n"))
	assert.Contains(t, out, "SUMMARY\n-------\nTom & Jerry\n")
	assert.Contains(t, out, "Engineer - Acme\n2020-01 – Present\n• Shipped\n• Scaled\n")
	assert.Contains(t, out, "SKILLS\n------\nGo\n")
	assert.NotContains(t, out, "<")
}

func TestExportMarkdown(t *testing.T) {
	out := ExportMarkdown(sampleDocument())

	assert.True(t, strings.HasPrefix(out, "# Jane Doe\n\n**Engineer**\n\n"))
	assert.Contains(t, out, "### Engineer @ Acme\n\n_2020-01 – Present_\n\n- Shipped\n- Scaled\n")
	assert.Contains(t, out, "- Go (Backend, 5/5)\n")
	assert.Contains(t, out, "### [Tool](https://tool.dev)\n")
}

func TestExport_Formats(t *testing.T) {
	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)
	assert.Equal(t, ".md", f.Ext())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	data, err := Export(sampleDocument(), FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")

	_, err = Export(sampleDocument(), Format("docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC)
	doc := NewDocument()
	doc.Summary = "<b>Hello</b> world"
	doc.Experience = []Experience{
		{StartDate: "2019-01", EndDate: "2019-07", WorkSummary: "one two three"},
		{StartDate: "2020-07-01", CurrentlyWorking: true},
		{StartDate: "bad", EndDate: "2020"},
	}
	doc.Skills = []Skill{{Name: "Go"}}

	st := ComputeStats(doc, now)

	assert.Equal(t, 5, st.Words)
	assert.Equal(t, len("Hello world")+len("one two three"), st.Characters)
	// 6 months + 12 months
	assert.Equal(t, 1.5, st.ExperienceYears)
	assert.Equal(t, 1, st.SkillCount)
	assert.Equal(t, 3, st.Sections)
}

func TestEncodeBody_OmitsServerFields(t *testing.T) {
	doc := sampleDocument()
	doc.ID = "r1"
	doc.CreatedAt = time.Now()
	doc.LastUpdated = time.Now()

	body, err := EncodeBody(doc)
	require.NoError(t, err)

	s := string(body)
	assert.NotContains(t, s, `"id"`)
	assert.NotContains(t, s, "lastUpdated")
	assert.NotContains(t, s, "createdAt")
	assert.Contains(t, s, `"favorite":false`)
	assert.Equal(t, "r1", doc.ID)
}

func TestDecodeBody(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	doc, err := DecodeBody([]byte(`{"title":"CV","skills":null,"lastUpdated":"1999-01-01T00:00:00Z"}`), "r1", created, updated)
	require.NoError(t, err)

	assert.Equal(t, "r1", doc.ID)
	assert.Equal(t, "CV", doc.Title)
	assert.Equal(t, updated, doc.LastUpdated)
	assert.NotNil(t, doc.Skills)
	assert.NotNil(t, doc.Projects)

	_, err = DecodeBody([]byte(`not json`), "r2", created, updated)
	assert.ErrorContains(t, err, "r2")
}
