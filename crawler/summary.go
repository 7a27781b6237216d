package crawler

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/use-agent/doccrawl/models"
)

// PrintSummary writes a Markdown report of index: a per-section file count
// table with a total row, then the failed and skipped URLs if any.
func PrintSummary(w io.Writer, index *models.Index) error {
	md := markdown.NewMarkdown(w)

	md.H2("Crawl Summary")
	md.PlainText("")

	sections := make([]string, 0, len(index.Sections))
	for s := range index.Sections {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	rows := make([][]string, 0, len(sections)+1)
	for _, s := range sections {
		rows = append(rows, []string{s, strconv.Itoa(len(index.Sections[s]))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(index.TotalFiles) + "**"})

	md.Table(markdown.TableSet{
		Header:    []string{"Section", "Files"},
		Rows:      rows,
		Alignment: []markdown.TableAlignment{markdown.AlignDefault, markdown.AlignRight},
	})

	if len(index.FailedURLs) > 0 {
		md.H3("Failed URLs (" + strconv.Itoa(len(index.FailedURLs)) + ")")
		md.PlainText("")
		md.BulletList(index.FailedURLs...)
		md.PlainText("")
	}

	if len(index.SkippedURLs) > 0 {
		md.H3("Skipped by robots.txt (" + strconv.Itoa(len(index.SkippedURLs)) + ")")
		md.PlainText("")
		md.BulletList(index.SkippedURLs...)
		md.PlainText("")
	}

	return md.Build()
}
