package parser

import (
	"html"
	"regexp"
	"strings"
)

var (
	styleRE  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptRE = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	brRE     = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraRE   = regexp.MustCompile(`(?i)</(?:p|div)>`)
	tagRE    = regexp.MustCompile(`<[^>]*>`)
)

// HTMLToText derives a plain-text rendering of an HTML body: <br> becomes a
// newline, closing <p>/<div> become paragraph breaks, style and script
// bodies are removed entirely, remaining tags are stripped, and common
// entities are unescaped.
func HTMLToText(s string) string {
	s = styleRE.ReplaceAllString(s, "")
	s = scriptRE.ReplaceAllString(s, "")
	s = brRE.ReplaceAllString(s, "\n")
	s = paraRE.ReplaceAllString(s, "\n\n")
	s = tagRE.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}
