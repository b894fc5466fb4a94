// Package preview prepares section content for display in a review UI.
package preview

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/annolab/emlkit/internal/annotate"
)

var policy = bluemonday.UGCPolicy()

// SanitizeHTML strips scripts, event handlers, and other active content
// from an HTML section payload before it reaches a browser.
func SanitizeHTML(s string) string {
	return policy.Sanitize(s)
}

// HighlightHTML renders section content as escaped HTML with annotated
// ranges wrapped in <mark> spans. colors maps class names to background
// colors; classes without a color get a bare mark element.
func HighlightHTML(content string, anns []annotate.Annotation, colors map[string]string) string {
	var b strings.Builder
	for _, seg := range annotate.Overlay(content, anns) {
		if seg.Annotation == nil {
			b.WriteString(html.EscapeString(seg.Text))
			continue
		}

		class := html.EscapeString(seg.Annotation.ClassName)
		if color := colors[seg.Annotation.ClassName]; color != "" {
			fmt.Fprintf(&b, `<mark data-class="%s" style="background:%s">%s</mark>`,
				class, html.EscapeString(color), html.EscapeString(seg.Text))
		} else {
			fmt.Fprintf(&b, `<mark data-class="%s">%s</mark>`, class, html.EscapeString(seg.Text))
		}
	}
	return b.String()
}
