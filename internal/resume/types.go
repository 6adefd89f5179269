package resume

import "time"

// Document is the persisted unit: one structured resume. ID is empty until the
// first successful create; Created and LastUpdated are assigned by the
// document store and never by clients.
type Document struct {
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Personal    Personal     `json:"personal"`
	Summary     string       `json:"summary"`
	Experience  []Experience `json:"experience"`
	Education   []Education  `json:"education"`
	Skills      []Skill      `json:"skills"`
	Projects    []Project    `json:"projects"`
	ThemeColor  string       `json:"themeColor"`
	Favorite    bool         `json:"favorite"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
	LastUpdated time.Time    `json:"lastUpdated,omitzero"`
}

// Personal 描述简历头部的个人信息。
type Personal struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Avatar    string `json:"avatar,omitempty"`
}

// Experience 表示一段工作经历。CurrentlyWorking 为 true 时 EndDate 被忽略。
type Experience struct {
	Title            string `json:"title"`
	CompanyName      string `json:"companyName"`
	City             string `json:"city"`
	State            string `json:"state"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	CurrentlyWorking bool   `json:"currentlyWorking"`
	WorkSummary      string `json:"workSummary"`
}

// Education 表示一段教育经历。
type Education struct {
	UniversityName string `json:"universityName"`
	Degree         string `json:"degree"`
	Major          string `json:"major"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Grade          string `json:"grade"`
	GradeType      string `json:"gradeType,omitempty" validate:"omitempty,oneof=CGPA GPA Percentage"`
	Description    string `json:"description,omitempty"`
}

// Skill names are unique within a document, compared case-insensitively.
type Skill struct {
	Name              string `json:"name" validate:"required"`
	Category          string `json:"category"`
	Rating            int    `json:"rating" validate:"min=1,max=5"`
	YearsOfExperience int    `json:"yearsOfExperience" validate:"min=0"`
}

// Project 表示一个项目经历，所有字段均可选。
type Project struct {
	ProjectName    string `json:"projectName"`
	TechStack      string `json:"techStack"`
	ProjectSummary string `json:"projectSummary"`
	ProjectURL     string `json:"projectUrl,omitempty" validate:"omitempty,url"`
	GithubURL      string `json:"githubUrl,omitempty" validate:"omitempty,url"`
}

// ListItem is the dashboard summary of a Document. It is always derived from
// a Document and never edited on its own.
type ListItem struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Personal    ListPersonal `json:"personal"`
	Preview     string       `json:"preview,omitempty"`
	ThemeColor  string       `json:"themeColor,omitempty"`
	Favorite    bool         `json:"favorite,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
	LastUpdated time.Time    `json:"lastUpdated,omitzero"`
}

// ListPersonal is the subset of Personal shown on dashboard cards.
type ListPersonal struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle"`
}

// Clone returns a deep copy so callers can never alias the slices of a draft
// they do not own.
func (d Document) Clone() Document {
	out := d
	out.Experience = cloneSlice(d.Experience)
	out.Education = cloneSlice(d.Education)
	out.Skills = cloneSlice(d.Skills)
	out.Projects = cloneSlice(d.Projects)
	return out
}

func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}
