// Package section flattens a parsed message into the ordered list of
// annotatable sections. Section indices are the coordinate space every
// stored annotation is keyed by, so Build must return identical output
// for identical input across releases.
package section

import (
	"strings"

	"github.com/annolab/emlkit/internal/codec"
	"github.com/annolab/emlkit/internal/parser"
)

// Type identifies what a section contains.
type Type string

const (
	TypeHeaders   Type = "HEADERS"
	TypeTextPlain Type = "TEXT_PLAIN"
	TypeTextHTML  Type = "TEXT_HTML"
)

// Display labels shown in annotation workspaces.
const (
	LabelHeaders   = "Email Headers"
	LabelTextPlain = "Text Body"
	LabelTextHTML  = "HTML Body"
)

// Section is one addressable unit of message content. Content has every
// CR removed so offsets agree with browser text nodes regardless of the
// original line endings. Charset and CTE describe how the source part was
// encoded, which reassembly needs to write a redacted body back.
type Section struct {
	Index   int
	Type    Type
	Label   string
	Content string
	Charset string
	CTE     string
}

// Build extracts the sections of a raw message: the header block at index
// 0, then the plain text body, then the HTML body, each present only when
// the message actually carries that part. A message with no blank-line
// separator has an empty headers section, matching the parser's rule that
// such input is all body.
func Build(raw string) []Section {
	header, _ := parser.SplitHeaderBody(raw)

	sections := []Section{{
		Index:   0,
		Type:    TypeHeaders,
		Label:   LabelHeaders,
		Content: stripCR(header),
		Charset: "utf-8",
		CTE:     "7bit",
	}}

	plain, html := parser.FindBodyLeaves(parser.ParseTree(raw))
	if plain != nil {
		sections = append(sections, Section{
			Index:   len(sections),
			Type:    TypeTextPlain,
			Label:   LabelTextPlain,
			Content: stripCR(codec.DecodeBody(plain.Part.Body, plain.CTE, plain.Charset)),
			Charset: plain.Charset,
			CTE:     plain.CTE,
		})
	}
	if html != nil {
		sections = append(sections, Section{
			Index:   len(sections),
			Type:    TypeTextHTML,
			Label:   LabelTextHTML,
			Content: stripCR(codec.DecodeBody(html.Part.Body, html.CTE, html.Charset)),
			Charset: html.Charset,
			CTE:     html.CTE,
		})
	}
	return sections
}

// Find returns the section with the given index, or nil when the index is
// out of range. Annotations address sections by index alone, so lookups
// stay a direct positional access.
func Find(sections []Section, index int) *Section {
	if index < 0 || index >= len(sections) {
		return nil
	}
	return &sections[index]
}

func stripCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}
