package cleaner

import (
	"strings"
	"testing"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// fenceLanguages returns the info string of every fenced code block in src.
func fenceLanguages(t *testing.T, src string) []string {
	t.Helper()
	source := []byte(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var langs []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && entering {
			langs = append(langs, string(fcb.Language(source)))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		t.Fatalf("walk markdown: %v", err)
	}
	return langs
}

func TestRenderer_Render(t *testing.T) {
	content := `<main>
		<h2>Setup</h2>
		<ul><li>one</li><li>two</li></ul>
		<pre><code>&lt;div data-on-click="@get('/x')"&gt;&lt;/div&gt;</code></pre>
		<pre><code class="language-js">const x = 1</code></pre>
	</main>`

	out, err := NewRenderer().Render(content, "Intro", pageURL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	wantHeader := "# Intro\n\nSource: " + pageURL + "\n\n---\n\n"
	if !strings.HasPrefix(out, wantHeader) {
		t.Errorf("missing header, got %q", out)
	}
	for _, want := range []string{"## Setup", "- one", "- two", `<div data-on-click="@get('/x')"></div>`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, PreserveAttr) {
		t.Errorf("annotation leaked into output:\n%s", out)
	}

	langs := fenceLanguages(t, out)
	if len(langs) != 2 || langs[0] != "html" || langs[1] != "js" {
		t.Errorf("fence languages = %v, want [html js]", langs)
	}
}

func TestRenderer_DemoBlock(t *testing.T) {
	ex := mustExtract(t, `<html><body><main>
		<h1>Click</h1>
		<fieldset class="demo"><button data-on-click="$count++">Go</button></fieldset>
	</main></body></html>`)

	out, err := NewRenderer().Render(ex.ContentHTML, ex.Title, pageURL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.Contains(out, "Demo code:") {
		t.Errorf("missing demo label:\n%s", out)
	}
	if !strings.Contains(out, `<button data-on-click="$count++">`) {
		t.Errorf("missing demo markup:\n%s", out)
	}
	langs := fenceLanguages(t, out)
	if len(langs) != 1 || langs[0] != "html" {
		t.Errorf("fence languages = %v, want [html]", langs)
	}
}

func TestRepairPunctuation(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"it\u00e2\u0080\u0099s", "it's"},
		{"a \u00e2\u0080\u0093 b", "a — b"},
		{"\u00e2\u0080\u009cquoted\u00e2\u0080\u009d", `"quoted"`},
		{"clean — text", "clean — text"},
	}

	for _, tt := range tests {
		got := RepairPunctuation(tt.in)
		if got != tt.want {
			t.Errorf("RepairPunctuation(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := RepairPunctuation(got); again != got {
			t.Errorf("RepairPunctuation not idempotent: %q -> %q", got, again)
		}
	}
}

func TestTagAttributeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare fence with attribute",
			in:   "text\n```\n<div data-show=\"$x\"></div>\n```\nafter",
			want: "text\n```html\n<div data-show=\"$x\"></div>\n```\nafter",
		},
		{
			name: "indent kept",
			in:   "- item\n  ```\n  <p data-text=\"$x\"></p>\n  ```",
			want: "- item\n  ```html\n  <p data-text=\"$x\"></p>\n  ```",
		},
		{
			name: "labelled fence untouched",
			in:   "```js\nel.dataset['data-x']\n```",
			want: "```js\nel.dataset['data-x']\n```",
		},
		{
			name: "annotated block untouched",
			in:   "```\n<pre data-preserve-code=\"0\"></pre>\n```",
			want: "```\n<pre data-preserve-code=\"0\"></pre>\n```",
		},
		{
			name: "no marker",
			in:   "```\nplain\n```",
			want: "```\nplain\n```",
		},
		{
			name: "unterminated",
			in:   "```\n<div data-on-load=\"x\"></div>",
			want: "```\n<div data-on-load=\"x\"></div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagAttributeFences(tt.in); got != tt.want {
				t.Errorf("TagAttributeFences() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestRenderer_AbsoluteLinks(t *testing.T) {
	content := `<main><p>See <a href="/guide/intro">the intro</a> and <a href="https://github.com/starfederation/datastar">the repo</a>.</p></main>`

	out, err := NewRenderer().Render(content, "Links", pageURL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{
		"[the intro](https://data-star.dev/guide/intro)",
		"[the repo](https://github.com/starfederation/datastar)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
