package transcript

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MinArticleChars is the smallest extraction accepted as real content.
const MinArticleChars = 100

// ErrTooShort means extraction failed; it is not an "empty document".
var ErrTooShort = errors.New("content extraction failed: text under 100 characters")

// excerptSep joins the head, middle and tail of a long document.
const excerptSep = " … "

// skipped elements: their text never reaches the output.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
}

// HTMLText drops script/style blocks, strips every remaining tag, decodes
// entities and collapses whitespace.
func HTMLText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var sb strings.Builder
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseSpace(sb.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] {
				depth++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] && depth > 0 {
				depth--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.TextToken:
			if depth == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

// ArticleText converts article HTML into normalized text. Results under
// MinArticleChars fail with ErrTooShort; results longer than budget runes
// are reduced to an Excerpt.
func ArticleText(doc string, budget int) (string, error) {
	return PlainText(HTMLText(doc), budget)
}

// PlainText applies the length gate and excerpt budget to already-extracted text.
func PlainText(text string, budget int) (string, error) {
	text = collapseSpace(text)
	if len([]rune(text)) < MinArticleChars {
		return "", ErrTooShort
	}
	return Excerpt(text, budget), nil
}

// Excerpt keeps the beginning, middle and end of text, each capped at
// budget/3 runes and cut at word boundaries. Text within budget is returned as is.
func Excerpt(text string, budget int) string {
	r := []rune(text)
	if budget <= 0 || len(r) <= budget {
		return text
	}
	part := (budget - 2*len([]rune(excerptSep))) / 3
	if part < 1 {
		return string(r[:budget])
	}

	head := trimTrailingPartial(string(r[:part]))
	midStart := len(r)/2 - part/2
	mid := trimBothPartial(string(r[midStart : midStart+part]))
	tail := trimLeadingPartial(string(r[len(r)-part:]))

	return head + excerptSep + mid + excerptSep + tail
}

func trimTrailingPartial(s string) string {
	if i := strings.LastIndexFunc(s, unicode.IsSpace); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func trimLeadingPartial(s string) string {
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 && i < len(s)-1 {
		return strings.TrimSpace(s[i:])
	}
	return s
}

func trimBothPartial(s string) string {
	return trimTrailingPartial(trimLeadingPartial(s))
}
