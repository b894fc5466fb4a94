package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_PlainMessage(t *testing.T) {
	sections := Build("Subject: Hi\r\n\r\nHello world")

	require.Len(t, sections, 2)

	assert.Equal(t, 0, sections[0].Index)
	assert.Equal(t, TypeHeaders, sections[0].Type)
	assert.Equal(t, "Email Headers", sections[0].Label)
	assert.Equal(t, "Subject: Hi", sections[0].Content)

	assert.Equal(t, 1, sections[1].Index)
	assert.Equal(t, TypeTextPlain, sections[1].Type)
	assert.Equal(t, "Text Body", sections[1].Label)
	assert.Equal(t, "Hello world", sections[1].Content)
	assert.Equal(t, "utf-8", sections[1].Charset)
	assert.Equal(t, "7bit", sections[1].CTE)
}

func TestBuild_MultipartAlternative(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"Subject: Both\r\n" +
		"Content-Type: multipart/alternative; boundary=B1\r\n" +
		"\r\n" +
		"--B1\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=E9\r\n" +
		"--B1\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>caf&eacute;</p>\r\n" +
		"--B1--\r\n"

	sections := Build(raw)

	require.Len(t, sections, 3)
	assert.Equal(t, TypeHeaders, sections[0].Type)

	assert.Equal(t, 1, sections[1].Index)
	assert.Equal(t, TypeTextPlain, sections[1].Type)
	assert.Equal(t, "café", sections[1].Content)
	assert.Equal(t, "iso-8859-1", sections[1].Charset)
	assert.Equal(t, "quoted-printable", sections[1].CTE)

	assert.Equal(t, 2, sections[2].Index)
	assert.Equal(t, TypeTextHTML, sections[2].Type)
	assert.Equal(t, "HTML Body", sections[2].Label)
	assert.Equal(t, "<p>caf&eacute;</p>", sections[2].Content)
}

// TestBuild_HTMLOnly tests that no plain section is fabricated for a
// message whose only body is HTML: the derived plain text has no place in
// the original message to write a redaction back to.
func TestBuild_HTMLOnly(t *testing.T) {
	raw := "Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>Hello</p>"

	sections := Build(raw)

	require.Len(t, sections, 2)
	assert.Equal(t, TypeHeaders, sections[0].Type)
	assert.Equal(t, TypeTextHTML, sections[1].Type)
	assert.Equal(t, 1, sections[1].Index)
}

func TestBuild_HeadersCRStripped(t *testing.T) {
	sections := Build("From: a@b.c\r\nSubject: x\r\n\r\nbody")

	assert.Equal(t, "From: a@b.c\nSubject: x", sections[0].Content)
}

func TestBuild_BodyCRStripped(t *testing.T) {
	sections := Build("Subject: x\r\n\r\nline one\r\nline two\r\n")

	require.Len(t, sections, 2)
	assert.Equal(t, "line one\nline two\n", sections[1].Content)
}

// TestBuild_NoBlankLine tests the synthetic empty headers section for
// input the parser treats entirely as body.
func TestBuild_NoBlankLine(t *testing.T) {
	sections := Build("no separator anywhere")

	require.Len(t, sections, 2)
	assert.Empty(t, sections[0].Content)
	assert.Equal(t, TypeTextPlain, sections[1].Type)
	assert.Equal(t, "no separator anywhere", sections[1].Content)
}

func TestBuild_AttachmentOnlyMessage(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=B\r\n" +
		"\r\n" +
		"--B\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"x.pdf\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"JVBERi0xLjQ=\r\n" +
		"--B--\r\n"

	sections := Build(raw)

	require.Len(t, sections, 1)
	assert.Equal(t, TypeHeaders, sections[0].Type)
}

func TestBuild_Deterministic(t *testing.T) {
	raw := "Subject: Hi\r\n\r\nHello world"

	assert.Equal(t, Build(raw), Build(raw))
}

func TestFind(t *testing.T) {
	sections := Build("Subject: Hi\r\n\r\nHello world")

	require.NotNil(t, Find(sections, 1))
	assert.Equal(t, TypeTextPlain, Find(sections, 1).Type)
	assert.Nil(t, Find(sections, -1))
	assert.Nil(t, Find(sections, 2))
}
