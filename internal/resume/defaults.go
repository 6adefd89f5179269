package resume

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultTitle 是新建简历草稿的标题。
	DefaultTitle = "My Resume"
	// UntitledTitle is used when a document is created without any title.
	UntitledTitle = "Untitled Resume"
	// ImportedTitle 用于没有标题的导入文件。
	ImportedTitle = "Imported Resume"
	// DefaultSkillCategory applies when a skill has no category.
	DefaultSkillCategory = "Other"
	// DefaultSkillRating mirrors the star preselected by the skill editor.
	DefaultSkillRating = 3

	copySuffix = " (Copy)"
)

// Partial carries the fields a caller wants to set on a new document; nil
// fields fall back to the empty defaults of NewDocument.
type Partial struct {
	Title      *string
	Personal   *Personal
	Summary    *string
	Experience []Experience
	Education  []Education
	Skills     []Skill
	Projects   []Project
	ThemeColor *string
}

// PartialFrom turns a full document into a Partial that sets every field.
// Identity and server timestamps are not carried over.
func PartialFrom(doc Document) Partial {
	doc = doc.Clone()
	return Partial{
		Title:      &doc.Title,
		Personal:   &doc.Personal,
		Summary:    &doc.Summary,
		Experience: doc.Experience,
		Education:  doc.Education,
		Skills:     doc.Skills,
		Projects:   doc.Projects,
		ThemeColor: &doc.ThemeColor,
	}
}

// NewDocument returns the empty draft opened by the builder.
func NewDocument() Document {
	return Document{
		Title:      DefaultTitle,
		Experience: []Experience{},
		Education:  []Education{},
		Skills:     []Skill{},
		Projects:   []Project{},
	}
}

// MergeDefaults applies p over NewDocument.
func MergeDefaults(p Partial) Document {
	doc := NewDocument()
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Personal != nil {
		doc.Personal = *p.Personal
	}
	if p.Summary != nil {
		doc.Summary = *p.Summary
	}
	if p.Experience != nil {
		doc.Experience = slices.Clone(p.Experience)
	}
	if p.Education != nil {
		doc.Education = slices.Clone(p.Education)
	}
	if p.Skills != nil {
		doc.Skills = slices.Clone(p.Skills)
	}
	if p.Projects != nil {
		doc.Projects = slices.Clone(p.Projects)
	}
	if p.ThemeColor != nil {
		doc.ThemeColor = *p.ThemeColor
	}
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = UntitledTitle
	}
	return doc
}

// Clean trims free-text fields, lower-cases the email, fills skill defaults
// and drops skills without a name. It is applied before every remote write.
func Clean(doc Document) Document {
	out := doc.Clone()

	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		out.Title = UntitledTitle
	}

	p := &out.Personal
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.JobTitle = strings.TrimSpace(p.JobTitle)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)

	out.Summary = strings.TrimSpace(out.Summary)

	for i := range out.Experience {
		e := &out.Experience[i]
		e.Title = strings.TrimSpace(e.Title)
		e.CompanyName = strings.TrimSpace(e.CompanyName)
		e.City = strings.TrimSpace(e.City)
		e.State = strings.TrimSpace(e.State)
		e.WorkSummary = strings.TrimSpace(e.WorkSummary)
	}

	for i := range out.Education {
		e := &out.Education[i]
		e.UniversityName = strings.TrimSpace(e.UniversityName)
		e.Degree = strings.TrimSpace(e.Degree)
		e.Major = strings.TrimSpace(e.Major)
		e.Grade = strings.TrimSpace(e.Grade)
		e.Description = strings.TrimSpace(e.Description)
	}

	skills := make([]Skill, 0, len(out.Skills))
	for _, s := range out.Skills {
		s = normalizeSkill(s)
		if s.Name == "" {
			continue
		}
		skills = append(skills, s)
	}
	out.Skills = skills

	for i := range out.Projects {
		p := &out.Projects[i]
		p.ProjectName = strings.TrimSpace(p.ProjectName)
		p.TechStack = strings.TrimSpace(p.TechStack)
		p.ProjectSummary = strings.TrimSpace(p.ProjectSummary)
		p.ProjectURL = strings.TrimSpace(p.ProjectURL)
		p.GithubURL = strings.TrimSpace(p.GithubURL)
	}

	if out.Experience == nil {
		out.Experience = []Experience{}
	}
	if out.Education == nil {
		out.Education = []Education{}
	}
	if out.Projects == nil {
		out.Projects = []Project{}
	}
	return out
}

// CopyTitle is the title given to a duplicate when the caller supplies none.
func CopyTitle(title string) string {
	return title + copySuffix
}

// UniqueTitle appends " (n)" to title until it no longer collides with an
// existing title.
func UniqueTitle(title string, existing []string) string {
	if !slices.Contains(existing, title) {
		return title
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", title, n)
		if !slices.Contains(existing, candidate) {
			return candidate
		}
	}
}

// GenerateTitle derives a title from the personal details, made unique
// against existing titles.
func GenerateTitle(p Personal, existing []string) string {
	first, last := strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName)
	if first != "" && last != "" {
		return UniqueTitle(first+" "+last+" Resume", existing)
	}
	return UniqueTitle(UntitledTitle, existing)
}
