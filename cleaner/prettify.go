package cleaner

import (
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")
)

// Prettify renders n as indented markup: one tag or text run per line,
// one space of indent per nesting level. Whitespace-only text is dropped.
func Prettify(n *html.Node) string {
	var b strings.Builder
	prettify(&b, n, 0, false)
	return b.String()
}

func prettify(b *strings.Builder, n *html.Node, depth int, raw bool) {
	indent := strings.Repeat(" ", depth)

	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettify(b, c, depth, false)
		}

	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return
		}
		b.WriteString(indent)
		if raw {
			b.WriteString(text)
		} else {
			b.WriteString(textEscaper.Replace(text))
		}
		b.WriteByte('\n')

	case html.CommentNode:
		b.WriteString(indent)
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->\n")

	case html.ElementNode:
		b.WriteString(indent)
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, a := range n.Attr {
			b.WriteByte(' ')
			if a.Namespace != "" {
				b.WriteString(a.Namespace)
				b.WriteByte(':')
			}
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(attrEscaper.Replace(a.Val))
			b.WriteByte('"')
		}
		if voidElements[n.Data] {
			b.WriteString("/>\n")
			return
		}
		b.WriteString(">\n")

		childRaw := n.Data == "script" || n.Data == "style"
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettify(b, c, depth+1, childRaw)
		}

		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteString(">\n")
	}
}
