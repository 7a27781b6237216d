package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid. Below it the selector rules
// take over.
const minContentLength = 50

// readabilityRoot runs the Mozilla Readability algorithm on rawHTML and
// returns the article body as the content root, plus the article title.
//
// A nil root means readability could not produce usable content and the
// caller should fall back to selector extraction.
func readabilityRoot(rawHTML, sourceURL string) (*goquery.Selection, string) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, falling back to selectors",
			"url", sourceURL, "error", err,
		)
		return nil, ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, falling back to selectors",
			"url", sourceURL, "error", err,
		)
		return nil, ""
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Warn("readability: extracted content too short, falling back to selectors",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return nil, ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, ""
	}
	return doc.Find("body").First(), collapseSpace(article.Title)
}
