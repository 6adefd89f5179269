package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resumeBuilder/internal/markup"
)

// Format 表示导出格式。
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned for an unknown export format.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatText, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext 返回导出文件扩展名。
func (f Format) Ext() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// ContentType 返回导出文件的 MIME 类型。
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/json"
	}
}

// Export renders doc in the requested format.
func Export(doc Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportJSON(doc)
	case FormatText:
		return []byte(ExportText(doc)), nil
	case FormatMarkdown:
		return []byte(ExportMarkdown(doc)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// ExportJSON 以缩进 JSON 导出完整文档。
func ExportJSON(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// ImportJSON decodes an exported document. Identity and server timestamps are
// dropped so the result can only be persisted as a new document. A non-blank
// title overrides the imported one; ImportedTitle is used when neither is set.
func ImportJSON(data []byte, title string) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode resume: %w", err)
	}
	doc.ID = ""
	doc.CreatedAt = time.Time{}
	doc.LastUpdated = time.Time{}
	doc.Favorite = false
	if t := strings.TrimSpace(title); t != "" {
		doc.Title = t
	} else if strings.TrimSpace(doc.Title) == "" {
		doc.Title = ImportedTitle
	}
	return MergeDefaults(PartialFrom(doc)), nil
}

// ExportText renders doc as plain text with markup stripped.
func ExportText(doc Document) string {
	var b strings.Builder
	p := doc.Personal

	if name := strings.Join(nonEmpty(p.FirstName, p.LastName), " "); name != "" {
		b.WriteString(name + "\n")
	}
	if p.JobTitle != "" {
		b.WriteString(p.JobTitle + "\n")
	}
	if contact := strings.Join(nonEmpty(p.Email, p.Phone, p.Address), " | "); contact != "" {
		b.WriteString(contact + "\n")
	}

	if s := plainBlock(doc.Summary); s != "" {
		writeTextSection(&b, "SUMMARY")
		b.WriteString(s + "\n")
	}

	if len(doc.Experience) > 0 {
		writeTextSection(&b, "EXPERIENCE")
		for _, e := range doc.Experience {
			b.WriteString(strings.Join(nonEmpty(e.Title, e.CompanyName), " - ") + "\n")
			if loc := strings.Join(nonEmpty(e.City, e.State), ", "); loc != "" {
				b.WriteString(loc + "\n")
			}
			b.WriteString(dateRange(e.StartDate, e.EndDate, e.CurrentlyWorking) + "\n")
			if s := plainBlock(e.WorkSummary); s != "" {
				b.WriteString(s + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(doc.Education) > 0 {
		writeTextSection(&b, "EDUCATION")
		for _, e := range doc.Education {
			b.WriteString(strings.Join(nonEmpty(e.Degree, e.Major), " in ") + "\n")
			if e.UniversityName != "" {
				b.WriteString(e.UniversityName + "\n")
			}
			b.WriteString(dateRange(e.StartDate, e.EndDate, false) + "\n")
			if e.Grade != "" {
				b.WriteString(strings.Join(nonEmpty(e.GradeType, e.Grade), ": ") + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(doc.Skills) > 0 {
		writeTextSection(&b, "SKILLS")
		names := make([]string, 0, len(doc.Skills))
		for _, s := range doc.Skills {
			names = append(names, s.Name)
		}
		b.WriteString(strings.Join(names, ", ") + "\n")
	}

	if len(doc.Projects) > 0 {
		writeTextSection(&b, "PROJECTS")
		for _, pr := range doc.Projects {
			b.WriteString(pr.ProjectName + "\n")
			if pr.TechStack != "" {
				b.WriteString("Tech: " + pr.TechStack + "\n")
			}
			if s := plainBlock(pr.ProjectSummary); s != "" {
				b.WriteString(s + "\n")
			}
			for _, link := range nonEmpty(pr.ProjectURL, pr.GithubURL) {
				b.WriteString(link + "\n")
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeTextSection(b *strings.Builder, title string) {
	b.WriteString("\n" + title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
}

// ExportMarkdown renders doc as markdown; markup lists become bullet lists.
func ExportMarkdown(doc Document) string {
	var b strings.Builder
	p := doc.Personal

	name := strings.Join(nonEmpty(p.FirstName, p.LastName), " ")
	if name == "" {
		name = doc.Title
	}
	b.WriteString("# " + name + "\n\n")
	if p.JobTitle != "" {
		b.WriteString("**" + p.JobTitle + "**\n\n")
	}
	if contact := strings.Join(nonEmpty(p.Email, p.Phone, p.Address), " · "); contact != "" {
		b.WriteString(contact + "\n\n")
	}

	if s := markdownBlock(doc.Summary); s != "" {
		b.WriteString("## Summary\n\n" + s + "\n\n")
	}

	if len(doc.Experience) > 0 {
		b.WriteString("## Experience\n\n")
		for _, e := range doc.Experience {
			b.WriteString("### " + strings.Join(nonEmpty(e.Title, e.CompanyName), " @ ") + "\n\n")
			b.WriteString("_" + dateRange(e.StartDate, e.EndDate, e.CurrentlyWorking) + "_\n\n")
			if s := markdownBlock(e.WorkSummary); s != "" {
				b.WriteString(s + "\n\n")
			}
		}
	}

	if len(doc.Education) > 0 {
		b.WriteString("## Education\n\n")
		for _, e := range doc.Education {
			b.WriteString("### " + strings.Join(nonEmpty(e.Degree, e.Major), ", ") + "\n\n")
			if e.UniversityName != "" {
				b.WriteString(e.UniversityName + "\n\n")
			}
			b.WriteString("_" + dateRange(e.StartDate, e.EndDate, false) + "_\n\n")
		}
	}

	if len(doc.Skills) > 0 {
		b.WriteString("## Skills\n\n")
		for _, s := range doc.Skills {
			fmt.Fprintf(&b, "- %s (%s, %d/5)\n", s.Name, s.Category, s.Rating)
		}
		b.WriteString("\n")
	}

	if len(doc.Projects) > 0 {
		b.WriteString("## Projects\n\n")
		for _, pr := range doc.Projects {
			title := pr.ProjectName
			if pr.ProjectURL != "" {
				title = "[" + title + "](" + pr.ProjectURL + ")"
			}
			b.WriteString("### " + title + "\n\n")
			if pr.TechStack != "" {
				b.WriteString("*" + pr.TechStack + "*\n\n")
			}
			if s := markdownBlock(pr.ProjectSummary); s != "" {
				b.WriteString(s + "\n\n")
			}
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func plainBlock(m string) string {
	return strings.TrimSpace(markup.RenderText(m))
}

func markdownBlock(m string) string {
	text := plainBlock(m)
	return strings.ReplaceAll(text, markup.Bullet, "- ")
}

func dateRange(start, end string, current bool) string {
	if current {
		end = "Present"
	}
	return strings.Join(nonEmpty(start, end), " – ")
}

// Stats 汇总编辑器侧栏展示的统计信息。
type Stats struct {
	Words           int     `json:"words"`
	Characters      int     `json:"characters"`
	Sections        int     `json:"sections"`
	ExperienceYears float64 `json:"experienceYears"`
	SkillCount      int     `json:"skillCount"`
}

// ComputeStats counts words and characters across every markup field and sums
// the span of each experience entry. Entries with unparseable dates are
// skipped; current roles run until now.
func ComputeStats(doc Document, now time.Time) Stats {
	fields := []string{doc.Summary}
	for _, e := range doc.Experience {
		fields = append(fields, e.WorkSummary)
	}
	for _, e := range doc.Education {
		fields = append(fields, e.Description)
	}
	for _, p := range doc.Projects {
		fields = append(fields, p.ProjectSummary)
	}

	var st Stats
	for _, f := range fields {
		st.Words += markup.WordCount(f)
		st.Characters += markup.CharacterCount(f)
	}

	var months int
	for _, e := range doc.Experience {
		start, ok := ParseDate(e.StartDate)
		if !ok {
			continue
		}
		end, ok := ParseDate(e.EndDate)
		if e.CurrentlyWorking || !ok {
			if !e.CurrentlyWorking {
				continue
			}
			end = now
		}
		if m := monthsBetween(start, end); m > 0 {
			months += m
		}
	}
	st.ExperienceYears = float64(months*10/12) / 10

	st.SkillCount = len(doc.Skills)
	for _, n := range []int{len(doc.Experience), len(doc.Education), len(doc.Skills), len(doc.Projects)} {
		if n > 0 {
			st.Sections++
		}
	}
	if strings.TrimSpace(doc.Summary) != "" {
		st.Sections++
	}
	return st
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
