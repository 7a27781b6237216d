package cleaner

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DefaultCodeLanguage is assumed for code blocks that do not declare one.
const DefaultCodeLanguage = "html"

// newMarkdownConverter creates a reusable, goroutine-safe Converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: ATX headings, "-" bullets, ``` fences.
//   - table plugin: keeps tables as pipe tables with minimal padding.
//   - code language plugin: tags unlabelled <pre> blocks with
//     DefaultCodeLanguage so their fences open with ```html.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle(commonmark.HeadingStyleATX),
				commonmark.WithBulletListMarker("-"),
				commonmark.WithCodeBlockFence("```"),
			),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
			&codeLanguagePlugin{lang: DefaultCodeLanguage},
		),
	)
}

var preSelector = cascadia.MustCompile("pre")

// codeLanguagePlugin runs before rendering and adds a language-<lang> class
// to every <pre> whose block has no language-* or lang-* class of its own.
type codeLanguagePlugin struct {
	lang string
}

func (p *codeLanguagePlugin) Name() string { return "code-language" }

func (p *codeLanguagePlugin) Init(conv *converter.Converter) error {
	conv.Register.PreRenderer(p.labelCodeBlocks, converter.PriorityEarly)
	return nil
}

func (p *codeLanguagePlugin) labelCodeBlocks(_ converter.Context, doc *html.Node) {
	for _, pre := range cascadia.QueryAll(doc, preSelector) {
		if hasLanguage(pre) {
			continue
		}
		addClass(pre, "language-"+p.lang)
	}
}

func hasLanguage(n *html.Node) bool {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key != "class" {
				continue
			}
			for _, c := range strings.Fields(a.Val) {
				if strings.Contains(c, "language-") || strings.Contains(c, "lang-") {
					return true
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasLanguage(c) {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}
