// Package assist normalizes what the text-generation collaborator returns
// before it reaches a resume.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resumeBuilder/internal/markup"
	"resumeBuilder/internal/resume"
)

// Kind 表示请求生成的文本类型。
type Kind string

const (
	KindSummary        Kind = "summary"
	KindWorkSummary    Kind = "work_summary"
	KindProjectSummary Kind = "project_summary"
	KindSkills         Kind = "skills"
)

// ErrUnknownKind is returned for an unsupported generation kind.
var ErrUnknownKind = errors.New("unknown suggestion kind")

// ParseKind 校验调用方传入的类型。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSummary, KindWorkSummary, KindProjectSummary, KindSkills:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Generator is the external text-generation collaborator. It returns plain or
// lightly marked strings.
type Generator interface {
	GenerateText(ctx context.Context, kind Kind, context string) ([]string, error)
}

// Suggest asks g for suggestions and normalizes them: markup is reduced to the
// allowed subset, blanks are dropped and duplicates (by plain text,
// case-insensitive) are removed keeping the first.
func Suggest(ctx context.Context, g Generator, kind Kind, context string) ([]string, error) {
	raw, err := g.GenerateText(ctx, kind, context)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}
	return Normalize(kind, raw), nil
}

// Normalize applies the suggestion cleanup without calling a generator.
func Normalize(kind Kind, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(markup.Sanitize(s))
		if kind == KindSkills {
			s = strings.TrimSpace(markup.StripToPlainText(s))
			s = strings.TrimLeft(s, "-•* ")
		}
		plain := strings.ToLower(strings.TrimSpace(markup.StripToPlainText(s)))
		if plain == "" {
			continue
		}
		if _, dup := seen[plain]; dup {
			continue
		}
		seen[plain] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NewSkills filters skill names already present in doc.
func NewSkills(doc resume.Document, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !doc.HasSkill(n) {
			out = append(out, n)
		}
	}
	return out
}

// ContextFor builds the prompt context for kind from doc. index selects the
// experience or project entry for per-entry kinds.
func ContextFor(doc resume.Document, kind Kind, index int) (string, error) {
	p := doc.Personal
	var b strings.Builder
	if p.JobTitle != "" {
		fmt.Fprintf(&b, "Job title: %s\n", p.JobTitle)
	}

	switch kind {
	case KindSummary:
		for _, e := range doc.Experience {
			fmt.Fprintf(&b, "Role: %s at %s\n", e.Title, e.CompanyName)
		}
		if len(doc.Skills) > 0 {
			names := make([]string, 0, len(doc.Skills))
			for _, s := range doc.Skills {
				names = append(names, s.Name)
			}
			fmt.Fprintf(&b, "Skills: %s\n", strings.Join(names, ", "))
		}
	case KindWorkSummary:
		if index < 0 || index >= len(doc.Experience) {
			return "", fmt.Errorf("experience index %d out of range", index)
		}
		e := doc.Experience[index]
		fmt.Fprintf(&b, "Role: %s at %s\n", e.Title, e.CompanyName)
		if s := markup.StripToPlainText(e.WorkSummary); strings.TrimSpace(s) != "" {
			fmt.Fprintf(&b, "Notes: %s\n", s)
		}
	case KindProjectSummary:
		if index < 0 || index >= len(doc.Projects) {
			return "", fmt.Errorf("project index %d out of range", index)
		}
		pr := doc.Projects[index]
		fmt.Fprintf(&b, "Project: %s\nTech: %s\n", pr.ProjectName, pr.TechStack)
	case KindSkills:
		for _, e := range doc.Experience {
			fmt.Fprintf(&b, "Role: %s\n", e.Title)
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return b.String(), nil
}
