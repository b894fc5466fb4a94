package parser

import "time"

// Address is one mailbox from an address header. Name may be empty.
type Address struct {
	Name  string
	Email string
}

// Attachment is a non-body leaf part with its decoded payload.
type Attachment struct {
	Filename    string
	ContentType string // media type only, parameters stripped
	Size        int64  // decoded length, or an estimate when decoding was skipped
	Data        []byte // nil when the estimated size exceeded the decode ceiling
	ContentID   string // angle brackets stripped
	Inline      bool   // inline disposition with a content-id (e.g. embedded images)
}

// ParsedMessage is the structured form of one raw message. It is built
// fresh on every Parse call and never mutated afterwards.
type ParsedMessage struct {
	From        Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	ReplyTo     Address
	Subject     string
	Date        time.Time // zero when missing or unparsable
	PlainBody   string
	HTMLBody    string
	IsHTML      bool // true when the plain body was derived from HTML
	Attachments []Attachment
}

// Headers is a case-insensitive header map. The first occurrence of a key
// wins; later duplicates are ignored.
type Headers map[string]string

// Get returns the value for a header key, or "" when absent.
func (h Headers) Get(key string) string {
	return h[normalizeHeaderKey(key)]
}

// Part is one node of the parsed MIME tree. Leaves carry a raw
// (not-yet-decoded) body; multipart containers carry child parts.
// BodyStart/BodyEnd locate the raw body within the original input, which is
// what allows redacted bodies to be spliced back into the envelope.
type Part struct {
	Headers   Headers
	Body      string
	BodyStart int
	BodyEnd   int
	Parts     []*Part
}

// IsMultipart reports whether the part is a container with child parts.
func (p *Part) IsMultipart() bool {
	return len(p.Parts) > 0
}

// BodyLeaf identifies the leaf that supplied a message body, along with the
// decode parameters needed to re-encode a rewritten body in its place.
type BodyLeaf struct {
	Part    *Part
	CTE     string
	Charset string
}
