// Package markup implements the small tag language used in resume free-text
// fields: bold, italic, underline, line breaks and list items.
package markup

// Kind identifies a token produced by Parse.
type Kind int

const (
	KindText Kind = iota
	KindBoldOpen
	KindBoldClose
	KindItalicOpen
	KindItalicClose
	KindUnderlineOpen
	KindUnderlineClose
	KindLineBreak
	KindListItem
)

var kindNames = map[Kind]string{
	KindText:           "text",
	KindBoldOpen:       "boldOpen",
	KindBoldClose:      "boldClose",
	KindItalicOpen:     "italicOpen",
	KindItalicClose:    "italicClose",
	KindUnderlineOpen:  "underlineOpen",
	KindUnderlineClose: "underlineClose",
	KindLineBreak:      "lineBreak",
	KindListItem:       "listItem",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Style is the inline formatting active for a text or list item token.
type Style struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
}

func (s Style) intersect(o Style) Style {
	return Style{Bold: s.Bold && o.Bold, Italic: s.Italic && o.Italic, Underline: s.Underline && o.Underline}
}

// Token is one element of a parsed markup string.
// Payload holds the decoded text for KindText and KindListItem, and the raw tag
// for open/close tokens. KindLineBreak carries no payload.
type Token struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload,omitempty"`
	Style   Style  `json:"style"`
}

// Engine is the markup contract used by the rest of the module. RegexEngine is
// the only implementation today.
type Engine interface {
	Parse(markup string) []Token
	StripToPlainText(markup string) string
	EscapeToMarkup(plain string) string
	WordCount(markup string) int
	CharacterCount(markup string) int
	ApplyInlineToggle(markup string, start, end int, tag string) string
}

// RegexEngine splits markup on <...> spans with a regular expression instead
// of building a tree.
type RegexEngine struct{}

// Default is the engine used when callers do not inject one.
var Default Engine = RegexEngine{}

func (RegexEngine) Parse(markup string) []Token           { return Parse(markup) }
func (RegexEngine) StripToPlainText(markup string) string { return StripToPlainText(markup) }
func (RegexEngine) EscapeToMarkup(plain string) string    { return EscapeToMarkup(plain) }
func (RegexEngine) WordCount(markup string) int           { return WordCount(markup) }
func (RegexEngine) CharacterCount(markup string) int      { return CharacterCount(markup) }

func (RegexEngine) ApplyInlineToggle(markup string, start, end int, tag string) string {
	return ApplyInlineToggle(markup, start, end, tag)
}
