// Package render converts model output to safe HTML for web clients.
package render

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer converts markdown to sanitized HTML. Safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer creates a renderer with the UGC sanitization policy, which
// keeps formatting, links and code blocks and strips scripts and event
// handlers.
func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

// HTML renders markdown to sanitized HTML.
func (r *Renderer) HTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	opts := html.RendererOptions{Flags: html.CommonFlags}

	raw := markdown.ToHTML([]byte(md), p, html.NewRenderer(opts))
	return string(r.policy.SanitizeBytes(raw))
}
