// Package redact replaces annotated spans with their tags and reassembles
// the result into a message that still parses. Redaction always works from
// the original section content; offsets are meaningless against already
// redacted text.
package redact

import (
	"encoding/base64"
	"mime/quotedprintable"
	"sort"
	"strings"

	"github.com/annolab/emlkit/internal/annotate"
	"github.com/annolab/emlkit/internal/codec"
	"github.com/annolab/emlkit/internal/parser"
	"github.com/annolab/emlkit/internal/section"
)

const base64LineLength = 76

// RedactSection replaces each annotated range of content with its tag,
// processing ranges from the end of the content backwards so that a splice
// never shifts the offsets of annotations still to be applied. Offsets are
// UTF-16 code units. Ranges outside the content clamp to it; ranges with
// nothing left are skipped.
func RedactSection(content string, anns []annotate.Annotation) string {
	if len(anns) == 0 {
		return content
	}

	sorted := make([]annotate.Annotation, len(anns))
	copy(sorted, anns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset > sorted[j].StartOffset
	})

	units := annotate.Units(content)
	for _, ann := range sorted {
		start, end := ann.StartOffset, ann.EndOffset
		if start < 0 {
			start = 0
		}
		if end > len(units) {
			end = len(units)
		}
		if end <= start {
			continue
		}
		repl := annotate.Units(replacement(ann))
		next := make([]uint16, 0, len(units)-(end-start)+len(repl))
		next = append(next, units[:start]...)
		next = append(next, repl...)
		next = append(next, units[end:]...)
		units = next
	}
	return annotate.FromUnits(units)
}

// RedactSections returns a copy of sections with each section's content
// redacted per the annotations grouped under its index.
func RedactSections(sections []section.Section, bySection map[int][]annotate.Annotation) []section.Section {
	out := make([]section.Section, len(sections))
	copy(out, sections)
	for i := range out {
		out[i].Content = RedactSection(out[i].Content, bySection[out[i].Index])
	}
	return out
}

// Reassemble produces a de-identified copy of a raw message. Body sections
// are redacted and written back over their original byte spans, re-encoded
// with the part's original charset and transfer encoding; the multipart
// framing, part headers, and non-text parts are untouched. The header block
// is spliced only when annotations target it. The output parses the same
// way the input did, with the annotated spans replaced by tags.
func Reassemble(raw string, anns []annotate.Annotation) string {
	sections := section.Build(raw)
	bySection := annotate.GroupBySection(anns)
	plain, html := parser.FindBodyLeaves(parser.ParseTree(raw))

	type patch struct {
		start, end int
		text       string
	}
	var patches []patch

	for _, sec := range sections {
		switch sec.Type {
		case section.TypeHeaders:
			if len(bySection[sec.Index]) == 0 {
				continue
			}
			header, _ := parser.SplitHeaderBody(raw)
			redacted := RedactSection(sec.Content, bySection[sec.Index])
			if strings.Contains(raw, "\r\n") {
				redacted = strings.ReplaceAll(redacted, "\n", "\r\n")
			}
			patches = append(patches, patch{start: 0, end: len(header), text: redacted})

		case section.TypeTextPlain, section.TypeTextHTML:
			leaf := plain
			if sec.Type == section.TypeTextHTML {
				leaf = html
			}
			if leaf == nil {
				continue
			}
			body := encodeBody(RedactSection(sec.Content, bySection[sec.Index]), sec.CTE, sec.Charset)
			patches = append(patches, patch{start: leaf.Part.BodyStart, end: leaf.Part.BodyEnd, text: body})
		}
	}

	// Splice back to front so earlier patch offsets stay valid
	sort.Slice(patches, func(i, j int) bool {
		return patches[i].start > patches[j].start
	})
	out := raw
	for _, p := range patches {
		out = out[:p.start] + p.text + out[p.end:]
	}
	return out
}

// replacement is the text spliced in for an annotation: its tag, or the
// class name in brackets when no tag was assigned.
func replacement(ann annotate.Annotation) string {
	if ann.Tag != "" {
		return ann.Tag
	}
	return "[" + ann.ClassName + "]"
}

// encodeBody re-encodes redacted text the way the original part was
// encoded so the declared Content-Transfer-Encoding header stays truthful.
func encodeBody(text, cte, charsetName string) string {
	payload := codec.EncodeBytes(text, charsetName)
	switch cte {
	case "base64":
		return wrapBase64(base64.StdEncoding.EncodeToString(payload))
	case "quoted-printable":
		var b strings.Builder
		w := quotedprintable.NewWriter(&b)
		_, _ = w.Write(payload)
		_ = w.Close()
		return b.String()
	default:
		return string(payload)
	}
}

func wrapBase64(s string) string {
	if len(s) <= base64LineLength {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/base64LineLength + 1)
	for len(s) > base64LineLength {
		b.WriteString(s[:base64LineLength])
		b.WriteByte('\n')
		s = s[base64LineLength:]
	}
	b.WriteString(s)
	return b.String()
}
