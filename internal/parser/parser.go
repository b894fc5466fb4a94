// Package parser turns raw RFC 822/MIME message text into a structured,
// addressable form: a MIME part tree plus the flattened ParsedMessage view.
// Parsing is tolerant: the input is user-supplied and often malformed, so
// every operation returns a best-effort result instead of an error.
package parser

import (
	"mime"
	"regexp"
	"strings"

	"github.com/annolab/emlkit/internal/codec"
)

var (
	blankLineRE = regexp.MustCompile(`\r?\n\r?\n`)
	foldRE      = regexp.MustCompile(`\r?\n[ \t]+`)
)

// Parse turns raw message text into a ParsedMessage. Structurally odd input
// degrades gracefully; there is no failure mode.
func Parse(raw string) *ParsedMessage {
	root := ParseTree(raw)
	h := root.Headers

	msg := &ParsedMessage{
		Subject: codec.DecodeHeader(h.Get("Subject")),
		From:    firstAddress(ParseAddressList(h.Get("From"))),
		To:      ParseAddressList(h.Get("To")),
		Cc:      ParseAddressList(h.Get("Cc")),
		Bcc:     ParseAddressList(h.Get("Bcc")),
		ReplyTo: firstAddress(ParseAddressList(h.Get("Reply-To"))),
		Date:    ParseDate(h.Get("Date")),
	}

	var c classifier
	c.walk(root)
	msg.PlainBody = c.plain
	msg.HTMLBody = c.html
	msg.Attachments = c.attachments

	// HTML-only message: derive a plain-text fallback
	if c.plainLeaf == nil && c.htmlLeaf != nil {
		msg.PlainBody = HTMLToText(msg.HTMLBody)
		msg.IsHTML = true
	}

	return msg
}

// ParseTree parses raw message text into its MIME part tree. Each call
// returns a fresh, owned tree; no state is shared between calls.
func ParseTree(raw string) *Part {
	return parsePart(raw, 0)
}

// FindBodyLeaves returns the leaves that supply the plain and HTML bodies,
// using the same first-occurrence-wins rule as Parse. Either may be nil.
func FindBodyLeaves(root *Part) (plain, html *BodyLeaf) {
	var c classifier
	c.walk(root)
	return c.plainLeaf, c.htmlLeaf
}

// SplitHeaderBody splits raw text at the first blank line, returning the
// header block and the offset where the body begins. When no blank line
// exists the whole input is treated as body and the header block is empty.
func SplitHeaderBody(raw string) (header string, bodyOffset int) {
	if loc := blankLineRE.FindStringIndex(raw); loc != nil {
		return raw[:loc[0]], loc[1]
	}
	return "", 0
}

func parsePart(raw string, base int) *Part {
	headerBlock, bodyOff := SplitHeaderBody(raw)
	p := &Part{
		Headers:   parseHeaders(headerBlock),
		Body:      raw[bodyOff:],
		BodyStart: base + bodyOff,
		BodyEnd:   base + len(raw),
	}

	_, params := parseContentType(p.Headers.Get("Content-Type"))
	if boundary := params["boundary"]; boundary != "" {
		for _, c := range splitMultipart(p.Body, boundary) {
			child := parsePart(p.Body[c.start:c.end], p.BodyStart+c.start)
			p.Parts = append(p.Parts, child)
		}
	}
	return p
}

// parseHeaders unfolds continuation lines, then splits "key: value" pairs
// on the first colon. Keys are lower-cased; lines without a colon are
// skipped; the first occurrence of a duplicate key is kept.
func parseHeaders(block string) Headers {
	h := make(Headers)
	if block == "" {
		return h
	}
	unfolded := foldRE.ReplaceAllString(block, " ")
	for _, line := range strings.Split(unfolded, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = normalizeHeaderKey(key)
		if _, exists := h[key]; !exists {
			h[key] = strings.TrimSpace(value)
		}
	}
	return h
}

func normalizeHeaderKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// parseContentType splits a Content-Type style value into its media type
// and parameters. Values the stdlib parser rejects are salvaged with a
// tolerant manual scan.
func parseContentType(v string) (string, map[string]string) {
	if strings.TrimSpace(v) == "" {
		return "", map[string]string{}
	}
	if mt, params, err := mime.ParseMediaType(v); err == nil {
		return strings.ToLower(mt), params
	}

	fields := strings.Split(v, ";")
	mt := strings.ToLower(strings.TrimSpace(fields[0]))
	params := make(map[string]string)
	for _, f := range fields[1:] {
		k, val, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		params[strings.ToLower(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(val), `"`)
	}
	return mt, params
}

type chunkSpan struct{ start, end int }

// splitMultipart finds the span of each part between "--boundary" delimiter
// lines. Preamble, epilogue, and the closing marker are discarded. A missing
// closing marker is tolerated by running the final part to the end of the
// body; a body with no delimiter lines at all yields no spans, which the
// caller treats as a single non-multipart part.
func splitMultipart(body, boundary string) []chunkSpan {
	delim := "--" + boundary
	var chunks []chunkSpan
	cur := -1

	i := 0
	for i <= len(body) {
		var line string
		var next int
		if nl := strings.IndexByte(body[i:], '\n'); nl >= 0 {
			line = body[i : i+nl]
			next = i + nl + 1
		} else {
			line = body[i:]
			next = len(body) + 1
		}
		trimmed := strings.TrimRight(strings.TrimSuffix(line, "\r"), " \t")

		if trimmed == delim || trimmed == delim+"--" {
			if cur >= 0 {
				// The newline preceding the delimiter belongs to the
				// boundary, not the part
				end := i
				if end > cur && body[end-1] == '\n' {
					end--
					if end > cur && body[end-1] == '\r' {
						end--
					}
				}
				chunks = append(chunks, chunkSpan{cur, end})
			}
			if trimmed == delim+"--" {
				return chunks
			}
			cur = next
		}
		i = next
	}

	if cur >= 0 && cur <= len(body) {
		chunks = append(chunks, chunkSpan{cur, len(body)})
	}
	return chunks
}

// classifier walks a part tree collecting the first plain body, the first
// HTML body, and every attachment, in tree order.
type classifier struct {
	plainLeaf   *BodyLeaf
	htmlLeaf    *BodyLeaf
	plain       string
	html        string
	attachments []Attachment
}

func (c *classifier) walk(p *Part) {
	if p.IsMultipart() {
		for _, child := range p.Parts {
			c.walk(child)
		}
		return
	}
	c.classifyLeaf(p)
}

func (c *classifier) classifyLeaf(p *Part) {
	mediaType, typeParams := parseContentType(p.Headers.Get("Content-Type"))
	switch {
	case mediaType == "":
		mediaType = "text/plain"
	case strings.HasPrefix(mediaType, "multipart/"):
		// Boundary never matched: degrade to a single text part
		mediaType = "text/plain"
	}

	cte := strings.ToLower(strings.TrimSpace(p.Headers.Get("Content-Transfer-Encoding")))
	if cte == "" {
		cte = "7bit"
	}
	charsetName := typeParams["charset"]
	if charsetName == "" {
		charsetName = "utf-8"
	}

	disposition, dispParams := parseContentType(p.Headers.Get("Content-Disposition"))
	isAttachment := strings.HasPrefix(disposition, "attachment")

	switch {
	case mediaType == "text/plain" && !isAttachment:
		if c.plainLeaf == nil {
			c.plainLeaf = &BodyLeaf{Part: p, CTE: cte, Charset: charsetName}
			c.plain = codec.DecodeBody(p.Body, cte, charsetName)
		}
	case mediaType == "text/html" && !isAttachment:
		if c.htmlLeaf == nil {
			c.htmlLeaf = &BodyLeaf{Part: p, CTE: cte, Charset: charsetName}
			c.html = codec.DecodeBody(p.Body, cte, charsetName)
		}
	default:
		c.attachments = append(c.attachments, buildAttachment(p, mediaType, cte, disposition, dispParams, typeParams))
	}
}

func buildAttachment(p *Part, mediaType, cte, disposition string, dispParams, typeParams map[string]string) Attachment {
	filename := dispParams["filename"]
	if filename == "" {
		filename = typeParams["name"]
	}

	att := Attachment{
		Filename:    codec.DecodeHeader(filename),
		ContentType: mediaType,
		ContentID:   strings.Trim(strings.TrimSpace(p.Headers.Get("Content-Id")), "<>"),
	}
	att.Inline = strings.HasPrefix(disposition, "inline") && att.ContentID != ""

	if estimate := codec.EstimateDecodedSize(p.Body, cte); estimate > codec.MaxAttachmentDecodeBytes {
		att.Size = int64(estimate)
		return att
	}
	att.Data = codec.DecodeBinary(p.Body, cte)
	att.Size = int64(len(att.Data))
	return att
}

func firstAddress(addrs []Address) Address {
	if len(addrs) == 0 {
		return Address{}
	}
	return addrs[0]
}
