package cleaner

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/use-agent/doccrawl/models"
)

// AttrMarker is the prefix of the documented framework's custom attributes.
// Its presence is the signal that a code sample is framework markup.
const AttrMarker = "data-"

// Annotations set on code elements during extraction. The Markdown converter
// drops attributes, so none of them reach the rendered output.
const (
	PreserveAttr = "data-preserve-code" // document-order index of every pre/code
	AttrCodeAttr = "data-attr-code"     // set when the code text contains AttrMarker
	DemoCodeAttr = "data-demo-code"     // set on code synthesized from a demo block
)

// Extract modes.
const (
	ModeSelector    = "selector"
	ModeReadability = "readability"
)

// chromeSelectors match page furniture that never belongs in the output.
var chromeSelectors = []string{
	"header", "nav", "footer", "aside",
	".sidebar", ".navigation", ".top",
	"script", "style", ".socials",
}

// rootSelectors are tried in order to locate the main content.
var rootSelectors = []string{"main", "article", "div.content", "body"}

const demoSelector = "fieldset.demo"

// Extracted is the title and cleaned main-content fragment of one page.
type Extracted struct {
	Title       string
	ContentHTML string
}

// Extractor isolates the main content of a documentation page and rewrites
// embedded code so it survives Markdown conversion.
type Extractor struct {
	mode string
}

// NewExtractor creates an Extractor. Unknown modes behave like ModeSelector.
func NewExtractor(mode string) *Extractor {
	return &Extractor{mode: mode}
}

// Extract parses rawHTML and returns the page title and the main content
// serialized back to HTML.
//
// Flow:
//  1. Title from the first <h1>, else <title>.
//  2. Locate the content root (selector rules or readability).
//  3. Insert a "Demo code:" block after every demo that carries AttrMarker.
//  4. Annotate every pre/code element in document order.
func (e *Extractor) Extract(rawHTML, sourceURL string) (*Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeExtraction, sourceURL, "parse html", err)
	}

	// ── 1. Title (before chrome removal, headers often hold the h1) ──
	title := extractTitle(doc)

	// ── 2. Content root ─────────────────────────────────────────────
	var root *goquery.Selection
	if e.mode == ModeReadability {
		var articleTitle string
		root, articleTitle = readabilityRoot(rawHTML, sourceURL)
		if title == "" {
			title = articleTitle
		}
		if root != nil {
			StripElements(root, chromeSelectors)
		}
	}
	if root == nil {
		StripElements(doc.Selection, chromeSelectors)
		root = findRoot(doc.Selection)
	}
	if root == nil {
		return &Extracted{Title: title}, nil
	}

	// ── 3. Demo blocks ──────────────────────────────────────────────
	insertDemoCode(root)

	// ── 4. Code preservation annotations ────────────────────────────
	markCodeBlocks(root)

	content, err := goquery.OuterHtml(root)
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeExtraction, sourceURL, "serialize content", err)
	}

	return &Extracted{Title: title, ContentHTML: content}, nil
}

func extractTitle(doc *goquery.Document) string {
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		return collapseSpace(h1.Text())
	}
	if t := doc.Find("title").First(); t.Length() > 0 {
		return collapseSpace(t.Text())
	}
	return ""
}

func findRoot(s *goquery.Selection) *goquery.Selection {
	for _, sel := range rootSelectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// insertDemoCode places the pretty-printed markup of each qualifying demo
// directly after it.
func insertDemoCode(root *goquery.Selection) {
	root.Find(demoSelector).Each(func(_ int, demo *goquery.Selection) {
		markup, err := goquery.OuterHtml(demo)
		if err != nil || !strings.Contains(markup, AttrMarker) {
			return
		}
		demo.AfterNodes(demoCodeBlock(Prettify(demo.Get(0))))
	})
}

// demoCodeBlock builds:
//
//	<div class="demo-code-block">
//	  <p>Demo code:</p>
//	  <pre><code class="language-html" data-language="html" data-demo-code="true">…</code></pre>
//	</div>
func demoCodeBlock(markup string) *html.Node {
	p := element(atom.P)
	p.AppendChild(&html.Node{Type: html.TextNode, Data: "Demo code:"})

	code := element(atom.Code,
		html.Attribute{Key: "class", Val: "language-html"},
		html.Attribute{Key: "data-language", Val: "html"},
		html.Attribute{Key: DemoCodeAttr, Val: "true"},
	)
	code.AppendChild(&html.Node{Type: html.TextNode, Data: markup})

	pre := element(atom.Pre)
	pre.AppendChild(code)

	div := element(atom.Div, html.Attribute{Key: "class", Val: "demo-code-block"})
	div.AppendChild(p)
	div.AppendChild(pre)
	return div
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func markCodeBlocks(root *goquery.Selection) {
	root.Find("pre, code").Each(func(i int, s *goquery.Selection) {
		s.SetAttr(PreserveAttr, strconv.Itoa(i))
		if strings.Contains(s.Text(), AttrMarker) {
			s.SetAttr(AttrCodeAttr, "true")
		}
	})
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
