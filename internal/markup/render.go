package markup

import "strings"

// Bullet is prepended to list items when rendering.
const Bullet = "• "

// Span is a styled run of display text.
type Span struct {
	Text     string `json:"text"`
	Style    Style  `json:"style"`
	ListItem bool   `json:"list_item,omitempty"`
}

// Render turns tokens into display spans. Open/close tokens only affect style
// and produce no output of their own.
func Render(tokens []Token) []Span {
	spans := make([]Span, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.Kind {
		case KindText:
			if tok.Payload == "" {
				continue
			}
			spans = append(spans, Span{Text: tok.Payload, Style: tok.Style})
		case KindLineBreak:
			spans = append(spans, Span{Text: "\n"})
		case KindListItem:
			spans = append(spans, Span{Text: Bullet + tok.Payload, Style: tok.Style, ListItem: true})
		}
	}
	return spans
}

// RenderText flattens markup into display text, placing every list item on
// its own bulleted line.
func RenderText(markup string) string {
	var b strings.Builder
	afterItem := false
	for _, span := range Render(Parse(markup)) {
		if span.ListItem {
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
			b.WriteString(span.Text)
			afterItem = true
			continue
		}
		if afterItem {
			if strings.TrimSpace(span.Text) == "" {
				continue
			}
			b.WriteByte('\n')
			afterItem = false
		}
		b.WriteString(span.Text)
	}
	return b.String()
}
