package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLRendersMarkdown(t *testing.T) {
	r := NewRenderer()

	out := r.HTML("# Title\n\nSome **bold** text and a [link](https://example.com).")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestHTMLRendersCodeBlocks(t *testing.T) {
	r := NewRenderer()

	out := r.HTML("```go\nfmt.Println(\"hi\")\n```")
	assert.Contains(t, out, "<code")
	assert.Contains(t, out, "fmt.Println")
}

func TestHTMLStripsScripts(t *testing.T) {
	r := NewRenderer()

	out := r.HTML(`hello <script>alert("xss")</script> world`)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "alert")
	assert.Contains(t, out, "hello")
}

func TestHTMLStripsEventHandlers(t *testing.T) {
	r := NewRenderer()

	out := r.HTML(`<a href="https://example.com" onclick="steal()">click</a>`)
	assert.NotContains(t, out, "onclick")
}
