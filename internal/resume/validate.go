package resume

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Section names used by field errors and completion.
const (
	SectionPersonal   = "personal"
	SectionSummary    = "summary"
	SectionExperience = "experience"
	SectionEducation  = "education"
	SectionSkills     = "skills"
	SectionProjects   = "projects"
)

// FieldError is a local, non-fatal validation problem shown next to a field.
// Index is the entry position for list sections and -1 otherwise.
type FieldError struct {
	Section string `json:"section"`
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d].%s: %s", e.Section, e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Section, e.Field, e.Message)
}

// Blocking reports whether the error gates a validated save. Personal details,
// experience and education gate; skills, projects and summary never do.
func (e FieldError) Blocking() bool {
	switch e.Section {
	case SectionPersonal, SectionExperience, SectionEducation:
		return true
	default:
		return false
	}
}

// ValidationErrors is returned by a validated save that was gated.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Blocking returns the subset of errors that gate a validated save.
func (v ValidationErrors) Blocking() ValidationErrors {
	var out ValidationErrors
	for _, e := range v {
		if e.Blocking() {
			out = append(out, e)
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var dateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// ParseDate accepts the date formats produced by the builder's pickers.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate returns every field-level problem in doc. It never mutates doc and
// is independent from saving or local updates.
func Validate(doc Document) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, structErrors(SectionPersonal, -1, doc.Personal)...)

	for i, e := range doc.Experience {
		end := e.EndDate
		if e.CurrentlyWorking {
			end = ""
		}
		errs = append(errs, dateErrors(SectionExperience, i, e.StartDate, end)...)
	}

	for i, e := range doc.Education {
		errs = append(errs, structErrors(SectionEducation, i, e)...)
		errs = append(errs, dateErrors(SectionEducation, i, e.StartDate, e.EndDate)...)
	}

	for i, s := range doc.Skills {
		errs = append(errs, structErrors(SectionSkills, i, normalizeSkill(s))...)
	}

	for i, p := range doc.Projects {
		errs = append(errs, structErrors(SectionProjects, i, p)...)
	}

	return errs
}

func dateErrors(section string, index int, start, end string) []FieldError {
	var errs []FieldError
	startAt, startOK := ParseDate(start)
	if strings.TrimSpace(start) != "" && !startOK {
		errs = append(errs, FieldError{Section: section, Index: index, Field: "startDate", Message: "invalid date"})
	}
	endAt, endOK := ParseDate(end)
	if strings.TrimSpace(end) != "" && !endOK {
		errs = append(errs, FieldError{Section: section, Index: index, Field: "endDate", Message: "invalid date"})
	}
	if startOK && endOK && startAt.After(endAt) {
		errs = append(errs, FieldError{Section: section, Index: index, Field: "endDate", Message: "end date must be after start date"})
	}
	return errs
}

func structErrors(section string, index int, v any) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Section: section, Index: index, Field: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Section: section,
			Index:   index,
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "please enter a valid email address"
	case "url":
		return "please enter a valid url"
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
