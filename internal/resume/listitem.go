package resume

import (
	"strings"

	"resumeBuilder/internal/markup"
)

// previewRunes 是卡片预览截取的最大字符数。
const previewRunes = 140

// ToListItem 从完整文档派生仪表盘摘要。
func ToListItem(doc Document) ListItem {
	return ListItem{
		ID:    doc.ID,
		Title: doc.Title,
		Personal: ListPersonal{
			FirstName: doc.Personal.FirstName,
			LastName:  doc.Personal.LastName,
			JobTitle:  doc.Personal.JobTitle,
		},
		Preview:     PreviewText(doc),
		ThemeColor:  doc.ThemeColor,
		Favorite:    doc.Favorite,
		CreatedAt:   doc.CreatedAt,
		LastUpdated: doc.LastUpdated,
	}
}

// PreviewText returns the plain-text summary line shown on a card. It prefers
// the summary and falls back to the most recent role.
func PreviewText(doc Document) string {
	text := collapseSpace(markup.StripToPlainText(doc.Summary))
	if text == "" && len(doc.Experience) > 0 {
		e := doc.Experience[0]
		text = strings.TrimSpace(strings.Join(nonEmpty(e.Title, e.CompanyName), " at "))
	}
	return truncateRunes(text, previewRunes)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
