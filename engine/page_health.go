package engine

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// MinVisibleText is the number of visible characters below which a page is
// treated as an unrendered client-side shell.
const MinVisibleText = 80

// LooksRendered reports whether rawHTML carries real content: at least
// MinVisibleText characters of text outside script, style, noscript and
// template elements.
func LooksRendered(rawHTML string) bool {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	hidden := 0
	visible := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return visible >= MinVisibleText
		case html.StartTagToken:
			if isHiddenTag(z) {
				hidden++
			}
		case html.EndTagToken:
			if isHiddenTag(z) && hidden > 0 {
				hidden--
			}
		case html.TextToken:
			if hidden == 0 {
				text := z.Text()
				visible += utf8.RuneCount(text) - countSpace(text)
				if visible >= MinVisibleText {
					return true
				}
			}
		}
	}
}

func isHiddenTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func countSpace(b []byte) int {
	n := 0
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r', '\f':
			n++
		}
	}
	return n
}
