package render

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// MathJax is off so that amounts like "$100 and $200" stay literal.
const markupExtensions = parser.CommonExtensions &^ parser.MathJax

// RenderMarkup converts markdown text into an HTML fragment. Blank input
// yields an empty fragment.
func RenderMarkup(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	// gomarkdown parsers keep state between calls; build one per document.
	p := parser.NewWithExtensions(markupExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.FlagsNone})
	return string(markdown.ToHTML([]byte(text), p, r))
}
