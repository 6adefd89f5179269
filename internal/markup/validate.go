package markup

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"
)

// IssueKind classifies a markup problem reported by Validate.
type IssueKind string

const (
	IssueUnclosed   IssueKind = "unclosed"
	IssueUnopened   IssueKind = "unopened"
	IssueUnknownTag IssueKind = "unknown_tag"
)

// Issue is a non-fatal markup problem. Offset is the byte offset of the tag.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Tag    string    `json:"tag"`
	Offset int       `json:"offset"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s tag %s at %d", i.Kind, i.Tag, i.Offset)
}

// Validate reports unbalanced style/list tags and unknown tags. The markup
// still parses and renders when issues are present.
func Validate(markup string) []Issue {
	var issues []Issue
	open := map[string][]int{}

	for _, loc := range tagPattern.FindAllStringIndex(markup, -1) {
		raw := markup[loc[0]:loc[1]]
		info, ok := classifyTag(raw)
		if !ok {
			issues = append(issues, Issue{Kind: IssueUnknownTag, Tag: raw, Offset: loc[0]})
			continue
		}
		if info.name == tagBreak {
			continue
		}
		if !info.closing {
			open[info.name] = append(open[info.name], loc[0])
			continue
		}
		stack := open[info.name]
		if len(stack) == 0 {
			issues = append(issues, Issue{Kind: IssueUnopened, Tag: raw, Offset: loc[0]})
			continue
		}
		open[info.name] = stack[:len(stack)-1]
	}

	for _, name := range []string{tagBold, tagItalic, tagUnderline, tagListItem, tagList} {
		for _, offset := range open[name] {
			issues = append(issues, Issue{Kind: IssueUnclosed, Tag: "<" + name + ">", Offset: offset})
		}
	}
	return issues
}

var sanitizePolicy = newSanitizePolicy()

func newSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "br", "ul", "ol", "li")
	return p
}

// Sanitize reduces arbitrary HTML, such as generated suggestions, to the tag
// subset understood by Parse. Attributes and other elements are dropped.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return sanitizePolicy.Sanitize(html)
}
