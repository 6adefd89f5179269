package markup

import (
	"strings"
	"unicode/utf8"
)

var entityDecoder = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "<br/>",
)

func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entityDecoder.Replace(s)
}

// StripToPlainText removes recognized tags (line breaks become newlines) and
// decodes the supported entities. Decoding can surface new tags or entities,
// e.g. "&amp;lt;b&amp;gt;", so the reduction repeats until nothing changes.
// Every pass that changes the string shortens it, which bounds the loop.
func StripToPlainText(markup string) string {
	current := markup
	for {
		next := stripOnce(current)
		if next == current {
			return current
		}
		current = next
	}
}

func stripOnce(s string) string {
	s = tagPattern.ReplaceAllStringFunc(s, func(raw string) string {
		info, ok := classifyTag(raw)
		if !ok {
			return raw
		}
		if info.name == tagBreak {
			return "\n"
		}
		return ""
	})
	return decodeEntities(s)
}

// EscapeToMarkup escapes the five special characters and turns newlines into
// line break tags.
func EscapeToMarkup(plain string) string {
	if plain == "" {
		return ""
	}
	return markupEscaper.Replace(plain)
}

// WordCount counts whitespace separated words in the plain text of markup.
func WordCount(markup string) int {
	return len(strings.Fields(StripToPlainText(markup)))
}

// CharacterCount counts runes in the plain text of markup.
func CharacterCount(markup string) int {
	return utf8.RuneCountInString(StripToPlainText(markup))
}
