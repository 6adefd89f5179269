package resume

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateSkill rejects a skill whose name already exists in the document.
	ErrDuplicateSkill = errors.New("skill already exists")
	// ErrInvalidSkill rejects a skill with an empty name or out of range values.
	ErrInvalidSkill = errors.New("invalid skill")
)

func normalizeSkill(s Skill) Skill {
	s.Name = strings.TrimSpace(s.Name)
	s.Category = strings.TrimSpace(s.Category)
	if s.Category == "" {
		s.Category = DefaultSkillCategory
	}
	if s.Rating == 0 {
		s.Rating = DefaultSkillRating
	}
	return s
}

// HasSkill reports whether doc already lists name, ignoring case and
// surrounding whitespace.
func (d *Document) HasSkill(name string) bool {
	name = strings.TrimSpace(name)
	for _, s := range d.Skills {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return true
		}
	}
	return false
}

// AddSkill appends s after normalizing it. Nothing changes when the skill is
// rejected.
func (d *Document) AddSkill(s Skill) error {
	s = normalizeSkill(s)
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidSkill)
	case s.Rating < 1 || s.Rating > 5:
		return fmt.Errorf("%w: rating %d out of range 1..5", ErrInvalidSkill, s.Rating)
	case s.YearsOfExperience < 0:
		return fmt.Errorf("%w: years of experience must not be negative", ErrInvalidSkill)
	}
	if d.HasSkill(s.Name) {
		return fmt.Errorf("%w: %q", ErrDuplicateSkill, s.Name)
	}
	d.Skills = append(d.Skills, s)
	return nil
}

// RemoveSkill drops the skill matching name (case-insensitive) and reports
// whether one was removed.
func (d *Document) RemoveSkill(name string) bool {
	name = strings.TrimSpace(name)
	for i, s := range d.Skills {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			d.Skills = append(d.Skills[:i:i], d.Skills[i+1:]...)
			return true
		}
	}
	return false
}

// SkillsByCategory groups skills for display, keeping document order inside
// each group.
func (d *Document) SkillsByCategory() map[string][]Skill {
	groups := make(map[string][]Skill)
	for _, s := range d.Skills {
		category := s.Category
		if category == "" {
			category = DefaultSkillCategory
		}
		groups[category] = append(groups[category], s)
	}
	return groups
}
