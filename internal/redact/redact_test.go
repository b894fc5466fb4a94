package redact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annolab/emlkit/internal/annotate"
	"github.com/annolab/emlkit/internal/parser"
	"github.com/annolab/emlkit/internal/section"
)

func TestRedactSection(t *testing.T) {
	got := RedactSection("Secret: 12345", []annotate.Annotation{
		{StartOffset: 8, EndOffset: 13, Tag: "[SSN_1]"},
	})
	assert.Equal(t, "Secret: [SSN_1]", got)
}

func TestRedactSection_ClassNameFallback(t *testing.T) {
	got := RedactSection("call 555-1234", []annotate.Annotation{
		{StartOffset: 5, EndOffset: 13, ClassName: "PHONE"},
	})
	assert.Equal(t, "call [PHONE]", got)
}

func TestRedactSection_MultipleAnnotations(t *testing.T) {
	content := "call John at 555-1234"
	anns := []annotate.Annotation{
		{StartOffset: 5, EndOffset: 9, Tag: "[NAME_1]"},
		{StartOffset: 13, EndOffset: 21, Tag: "[PHONE_1]"},
	}

	assert.Equal(t, "call [NAME_1] at [PHONE_1]", RedactSection(content, anns))

	// Input order does not matter
	reversed := []annotate.Annotation{anns[1], anns[0]}
	assert.Equal(t, "call [NAME_1] at [PHONE_1]", RedactSection(content, reversed))
}

// TestRedactSection_Deterministic tests that redacting twice from the same
// original content yields byte-identical output.
func TestRedactSection_Deterministic(t *testing.T) {
	content := "a b c d e"
	anns := []annotate.Annotation{
		{StartOffset: 0, EndOffset: 1, Tag: "[X]"},
		{StartOffset: 4, EndOffset: 5, Tag: "[Y]"},
	}

	assert.Equal(t, RedactSection(content, anns), RedactSection(content, anns))
}

func TestRedactSection_UTF16Offsets(t *testing.T) {
	// The emoji is two UTF-16 units, so "John" spans [3,7)
	got := RedactSection("😀 John", []annotate.Annotation{
		{StartOffset: 3, EndOffset: 7, Tag: "[NAME_1]"},
	})
	assert.Equal(t, "😀 [NAME_1]", got)
}

func TestRedactSection_OutOfRangeClamped(t *testing.T) {
	got := RedactSection("short", []annotate.Annotation{
		{StartOffset: 2, EndOffset: 999, Tag: "[X]"},
	})
	assert.Equal(t, "sh[X]", got)
}

func TestRedactSection_DegenerateRangesSkipped(t *testing.T) {
	anns := []annotate.Annotation{
		{StartOffset: 2, EndOffset: 2, Tag: "[X]"},
		{StartOffset: 9, EndOffset: 5, Tag: "[Y]"},
	}
	assert.Equal(t, "unchanged", RedactSection("unchanged", anns))
	assert.Equal(t, "unchanged", RedactSection("unchanged", nil))
}

func TestRedactSections(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: multipart/mixed; boundary=B1\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Secret: 12345\r\n" +
		"--B1--\r\n"

	sections := section.Build(raw)
	redacted := RedactSections(sections, annotate.GroupBySection([]annotate.Annotation{
		{SectionIndex: 1, StartOffset: 8, EndOffset: 13, Tag: "[SSN_1]"},
	}))

	require.Len(t, redacted, 2)
	assert.Equal(t, "Secret: [SSN_1]", redacted[1].Content)

	// Originals are untouched
	assert.Equal(t, "Secret: 12345", sections[1].Content)
}

func TestReassemble_SinglePart(t *testing.T) {
	raw := "Subject: Hi\r\n\r\nHello John"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 6, EndOffset: 10, Tag: "[NAME_1]"},
	})

	assert.Equal(t, "Subject: Hi\r\n\r\nHello [NAME_1]", out)

	msg := parser.Parse(out)
	assert.Equal(t, "Hi", msg.Subject)
	assert.Equal(t, "Hello [NAME_1]", msg.PlainBody)
}

func TestReassemble_Multipart(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Content-Type: multipart/mixed; boundary=B1\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Secret: 12345\r\n" +
		"--B1--\r\n"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 8, EndOffset: 13, Tag: "[SSN_1]"},
	})

	assert.Contains(t, out, "Secret: [SSN_1]")
	assert.Contains(t, out, "--B1--")

	msg := parser.Parse(out)
	assert.Equal(t, "Secret: [SSN_1]", msg.PlainBody)
	assert.Empty(t, msg.Attachments)
}

// TestReassemble_Base64Body tests that a base64 part is re-encoded as
// base64, keeping the declared transfer encoding truthful.
func TestReassemble_Base64Body(t *testing.T) {
	raw := "Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"SGVsbG8gSm9obg==" // "Hello John"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 6, EndOffset: 10, Tag: "[NAME_1]"},
	})

	assert.NotContains(t, out, "Hello")
	assert.Contains(t, out, "Content-Transfer-Encoding: base64")

	msg := parser.Parse(out)
	assert.Equal(t, "Hello [NAME_1]", msg.PlainBody)
}

// TestReassemble_QuotedPrintableCharset tests re-encoding into the part's
// original charset and transfer encoding.
func TestReassemble_QuotedPrintableCharset(t *testing.T) {
	raw := "Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=E9 John"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 5, EndOffset: 9, Tag: "[NAME_1]"},
	})

	assert.Contains(t, out, "caf=E9 [NAME_1]")

	msg := parser.Parse(out)
	assert.Equal(t, "café [NAME_1]", msg.PlainBody)
}

// TestReassemble_Headers tests splicing a redacted header block when
// annotations target section 0, restoring the original line endings.
func TestReassemble_Headers(t *testing.T) {
	raw := "From: alice@example.com\r\nSubject: x\r\n\r\nbody"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 0, StartOffset: 6, EndOffset: 23, Tag: "[EMAIL_1]"},
	})

	assert.Equal(t, "From: [EMAIL_1]\r\nSubject: x\r\n\r\nbody", out)
}

func TestReassemble_NoAnnotations(t *testing.T) {
	raw := "Subject: x\r\n\r\nline1\r\nline2"

	out := Reassemble(raw, nil)

	// Headers keep their bytes; the body is rewritten from the CR-stripped
	// section content
	assert.True(t, strings.HasPrefix(out, "Subject: x\r\n\r\n"))
	msg := parser.Parse(out)
	assert.Equal(t, "line1\nline2", msg.PlainBody)
}

func TestReassemble_BothBodies(t *testing.T) {
	raw := "Content-Type: multipart/alternative; boundary=B1\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"John called\r\n" +
		"--B1\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>John</p>\r\n" +
		"--B1--\r\n"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 0, EndOffset: 4, Tag: "[NAME_1]"},
		{SectionIndex: 2, StartOffset: 3, EndOffset: 7, Tag: "[NAME_1]"},
	})

	msg := parser.Parse(out)
	assert.Equal(t, "[NAME_1] called", msg.PlainBody)
	assert.Equal(t, "<p>[NAME_1]</p>", msg.HTMLBody)
}

// TestReassemble_RoundTripSections tests that sections built from the
// reassembled message carry the redacted content at the same indices.
func TestReassemble_RoundTripSections(t *testing.T) {
	raw := "Subject: Hi\r\n\r\nSecret: 12345"

	out := Reassemble(raw, []annotate.Annotation{
		{SectionIndex: 1, StartOffset: 8, EndOffset: 13, Tag: "[SSN_1]"},
	})

	sections := section.Build(out)
	require.Len(t, sections, 2)
	assert.Equal(t, section.TypeTextPlain, sections[1].Type)
	assert.Equal(t, "Secret: [SSN_1]", sections[1].Content)
}
