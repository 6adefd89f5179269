package markup

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^<>]*>`)

// tag families; aliases collapse onto the canonical name.
const (
	tagBold      = "b"
	tagItalic    = "i"
	tagUnderline = "u"
	tagBreak     = "br"
	tagListItem  = "li"
	tagList      = "ul"
)

var tagAliases = map[string]string{
	"b":      tagBold,
	"strong": tagBold,
	"i":      tagItalic,
	"em":     tagItalic,
	"u":      tagUnderline,
	"br":     tagBreak,
	"li":     tagListItem,
	"ul":     tagList,
	"ol":     tagList,
}

type tagInfo struct {
	name    string // canonical family name
	closing bool
}

// classifyTag reports whether raw (including the angle brackets) is one of the
// recognized tags.
func classifyTag(raw string) (tagInfo, bool) {
	if len(raw) < 3 || raw[0] != '<' || raw[len(raw)-1] != '>' {
		return tagInfo{}, false
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	closing := strings.HasPrefix(inner, "/")
	if closing {
		inner = strings.TrimSpace(inner[1:])
	}
	inner = strings.TrimSpace(strings.TrimSuffix(inner, "/"))
	fields := strings.Fields(inner)
	if len(fields) == 0 {
		return tagInfo{}, false
	}
	name, ok := tagAliases[strings.ToLower(fields[0])]
	if !ok {
		return tagInfo{}, false
	}
	return tagInfo{name: name, closing: closing}, true
}

// Parse tokenizes markup. It never fails: unknown or malformed tags are kept as
// literal text and unclosed styles stay active until the end of the string.
// A list item carries the styles shared by all of its visible text, so
// <li><b>x</b></li> and <b><li>x</li></b> both yield a bold item.
func Parse(markup string) []Token {
	if markup == "" {
		return nil
	}

	p := &parser{}
	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(markup, -1) {
		if loc[0] > last {
			p.text(markup[last:loc[0]])
		}
		p.tag(markup[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(markup) {
		p.text(markup[last:])
	}
	p.flushItem()
	return p.tokens
}

type parser struct {
	tokens []Token
	style  Style

	inItem    bool
	itemStyle Style
	// itemStyled 表示 itemStyle 已由条目内的可见文本确定
	itemStyled bool
	item       strings.Builder
}

func (p *parser) text(raw string) {
	if p.inItem {
		decoded := decodeEntities(raw)
		p.item.WriteString(decoded)
		if strings.TrimSpace(decoded) == "" {
			return
		}
		if !p.itemStyled {
			p.itemStyle, p.itemStyled = p.style, true
		} else {
			p.itemStyle = p.itemStyle.intersect(p.style)
		}
		return
	}
	p.tokens = append(p.tokens, Token{Kind: KindText, Payload: decodeEntities(raw), Style: p.style})
}

func (p *parser) tag(raw string) {
	info, ok := classifyTag(raw)
	if !ok {
		p.text(raw)
		return
	}

	switch info.name {
	case tagBold, tagItalic, tagUnderline:
		kind := p.toggle(info)
		if !p.inItem {
			p.tokens = append(p.tokens, Token{Kind: kind, Payload: raw})
		}
	case tagBreak:
		if p.inItem {
			p.item.WriteByte(' ')
			return
		}
		p.tokens = append(p.tokens, Token{Kind: KindLineBreak})
	case tagListItem:
		p.flushItem()
		if !info.closing {
			p.inItem = true
			p.itemStyle = p.style
			p.itemStyled = false
		}
	case tagList:
		p.flushItem()
	}
}

func (p *parser) toggle(info tagInfo) Kind {
	on := !info.closing
	switch info.name {
	case tagBold:
		p.style.Bold = on
		if on {
			return KindBoldOpen
		}
		return KindBoldClose
	case tagItalic:
		p.style.Italic = on
		if on {
			return KindItalicOpen
		}
		return KindItalicClose
	default:
		p.style.Underline = on
		if on {
			return KindUnderlineOpen
		}
		return KindUnderlineClose
	}
}

func (p *parser) flushItem() {
	if !p.inItem {
		return
	}
	p.tokens = append(p.tokens, Token{
		Kind:    KindListItem,
		Payload: strings.TrimSpace(p.item.String()),
		Style:   p.itemStyle,
	})
	p.item.Reset()
	p.inItem = false
	p.itemStyled = false
}
