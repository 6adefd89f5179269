package markup

import "strings"

var toggleTags = map[string]bool{
	"b":      true,
	"strong": true,
	"i":      true,
	"em":     true,
	"u":      true,
}

// ApplyInlineToggle implements the bold/italic/underline buttons of the editor.
//
// With an empty selection an empty tag pair is inserted at the cursor. With a
// non-empty selection the tag is removed when the selected text contains it and
// added around the selection otherwise. Only the exact selected substring is
// inspected, so a pair that brackets the selection from outside is left alone.
// Offsets are rune offsets; out of range values are clamped. Unsupported tag
// names leave markup unchanged.
func ApplyInlineToggle(markup string, start, end int, tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if !toggleTags[tag] {
		return markup
	}

	runes := []rune(markup)
	start, end = clampSelection(start, end, len(runes))

	open, closeTag := "<"+tag+">", "</"+tag+">"
	before, after := string(runes[:start]), string(runes[end:])

	if start == end {
		return before + open + closeTag + after
	}

	selected := string(runes[start:end])
	family := tagAliases[tag]
	if containsTagFamily(selected, family) {
		return before + removeTagFamily(selected, family) + after
	}
	return before + open + selected + closeTag + after
}

// InsertionCursor returns the rune offset between the tag pair inserted by
// ApplyInlineToggle for an empty selection at cursor.
func InsertionCursor(cursor int, tag string) int {
	return cursor + len([]rune(strings.ToLower(strings.TrimSpace(tag)))) + 2
}

func clampSelection(start, end, length int) (int, int) {
	if start > end {
		start, end = end, start
	}
	if start < 0 {
		start = 0
	}
	if end > length {
		end = length
	}
	if start > length {
		start = length
	}
	if end < start {
		end = start
	}
	return start, end
}

func containsTagFamily(s, family string) bool {
	for _, raw := range tagPattern.FindAllString(s, -1) {
		if info, ok := classifyTag(raw); ok && info.name == family {
			return true
		}
	}
	return false
}

func removeTagFamily(s, family string) string {
	return tagPattern.ReplaceAllStringFunc(s, func(raw string) string {
		if info, ok := classifyTag(raw); ok && info.name == family {
			return ""
		}
		return raw
	})
}
