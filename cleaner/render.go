package cleaner

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

// punctuationRepairs map UTF-8 punctuation that was decoded as Latin-1
// back to the intended characters.
var punctuationRepairs = strings.NewReplacer(
	"\u00e2\u0080\u0093", "—",
	"\u00e2\u0080\u0099", "'",
	"\u00e2\u0080\u009c", `"`,
	"\u00e2\u0080\u009d", `"`,
)

const fence = "```"

// Renderer converts extracted content into the final Markdown document.
// It is safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

func NewRenderer() *Renderer {
	return &Renderer{conv: newMarkdownConverter()}
}

// Render converts contentHTML to Markdown and prefixes the document header.
// Relative links are resolved against sourceURL.
func (r *Renderer) Render(contentHTML, title, sourceURL string) (string, error) {
	body, err := r.conv.ConvertString(contentHTML, converter.WithDomain(sourceURL))
	if err != nil {
		return "", fmt.Errorf("cleaner: convert markdown: %w", err)
	}

	body = RepairPunctuation(body)
	return Header(title, sourceURL) + TagAttributeFences(body), nil
}

// Header returns the document preamble: title, source line and a rule.
func Header(title, sourceURL string) string {
	return "# " + title + "\n\nSource: " + sourceURL + "\n\n---\n\n"
}

// RepairPunctuation fixes the known mis-decoded punctuation sequences.
func RepairPunctuation(s string) string {
	return punctuationRepairs.Replace(s)
}

// TagAttributeFences gives a language to bare fenced blocks that hold
// framework markup. A region opened by a bare ``` whose text contains
// AttrMarker, and is not an annotated block, gets its opening fence rewritten
// to ```html with the original indentation. An unterminated trailing region
// is left as is.
func TagAttributeFences(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))

	inBlock := false
	var block []string

	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), fence) {
			if inBlock {
				block = append(block, line)
			} else {
				out = append(out, line)
			}
			continue
		}

		if !inBlock {
			inBlock = true
			block = []string{line}
			continue
		}

		block = append(block, line)
		out = append(out, tagBlock(block)...)
		inBlock = false
		block = nil
	}

	out = append(out, block...)
	return strings.Join(out, "\n")
}

func tagBlock(block []string) []string {
	text := strings.Join(block, "\n")
	if !strings.Contains(text, AttrMarker) || strings.Contains(text, PreserveAttr) {
		return block
	}

	open := block[0]
	trimmed := strings.TrimSpace(open)
	if trimmed != fence {
		return block
	}
	indent := open[:strings.Index(open, fence)]
	block[0] = indent + fence + DefaultCodeLanguage
	return block
}
