// Package completion derives per-section and overall progress for a resume.
package completion

import (
	"math"
	"strings"

	"resumeBuilder/internal/markup"
	"resumeBuilder/internal/resume"
)

// SectionID 标识简历中的一个分区。
type SectionID string

const (
	Personal   SectionID = resume.SectionPersonal
	Summary    SectionID = resume.SectionSummary
	Experience SectionID = resume.SectionExperience
	Education  SectionID = resume.SectionEducation
	Skills     SectionID = resume.SectionSkills
	Projects   SectionID = resume.SectionProjects
)

// Sections lists every section in builder order.
var Sections = []SectionID{Personal, Summary, Experience, Education, Skills, Projects}

// MinSummaryLength is the plain-text length a summary needs to count as done.
const MinSummaryLength = 50

// Status is the progress label shown on a section tab.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// SectionStatus 描述单个分区的完成情况。
type SectionStatus struct {
	Completed  bool   `json:"completed"`
	HasContent bool   `json:"hasContent"`
	Status     Status `json:"status"`
}

// Result is the outcome of Evaluate.
type Result struct {
	PerSection     map[SectionID]SectionStatus `json:"perSection"`
	OverallPercent int                         `json:"overallPercent"`
}

// Evaluate is pure: it only reads doc.
func Evaluate(doc resume.Document) Result {
	res := Result{PerSection: make(map[SectionID]SectionStatus, len(Sections))}

	completed := 0
	for _, id := range Sections {
		st := evaluateSection(doc, id)
		if st.Completed {
			completed++
		}
		res.PerSection[id] = st
	}
	res.OverallPercent = percent(completed, len(Sections))
	return res
}

func evaluateSection(doc resume.Document, id SectionID) SectionStatus {
	var st SectionStatus
	switch id {
	case Personal:
		p := doc.Personal
		st.Completed = filled(p.FirstName) && filled(p.LastName) && filled(p.Email) && filled(p.Phone)
		st.HasContent = filled(p.FirstName) || filled(p.LastName)
	case Summary:
		st.Completed = len([]rune(markup.StripToPlainText(doc.Summary))) >= MinSummaryLength
		st.HasContent = filled(doc.Summary)
	case Experience:
		st.Completed = len(doc.Experience) > 0
	case Education:
		st.Completed = len(doc.Education) > 0
	case Skills:
		st.Completed = len(doc.Skills) > 0
	case Projects:
		st.Completed = len(doc.Projects) > 0
	}
	if st.Completed {
		st.HasContent = true
	}

	switch {
	case st.Completed:
		st.Status = StatusCompleted
	case st.HasContent:
		st.Status = StatusInProgress
	default:
		st.Status = StatusNotStarted
	}
	return st
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}
