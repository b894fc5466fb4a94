// Package codec provides the low-level byte and text decoders used by the
// message parser: base64, quoted-printable, charset conversion, and RFC 2047
// encoded words. All decoding is tolerant. Malformed input degrades to a
// fallback value instead of failing the caller.
package codec

import (
	"bytes"
	"encoding/base64"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// MaxAttachmentDecodeBytes is the ceiling above which attachment bodies are
// not decoded. Oversized attachments keep their size estimate and no data.
const MaxAttachmentDecodeBytes = 25 * 1024 * 1024

var wsStripper = strings.NewReplacer(" ", "", "\t", "", "\r", "", "\n", "")

// DecodeBase64 decodes base64 text, ignoring embedded whitespace. Input with
// missing padding is retried in raw form; anything else malformed returns an
// error so the caller can fall back to treating the text as opaque.
func DecodeBase64(s string) ([]byte, error) {
	stripped := wsStripper.Replace(s)
	if data, err := base64.StdEncoding.DecodeString(stripped); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(stripped, "="))
}

// DecodeQuotedPrintable decodes quoted-printable text. Soft line breaks are
// unfolded and "=" escapes that are not followed by two hex digits pass
// through literally, so the function never fails.
func DecodeQuotedPrintable(s string) []byte {
	var out bytes.Buffer
	out.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '=' {
			out.WriteByte(c)
			i++
			continue
		}
		// Soft line break: "=\n" or "=\r\n"
		if i+1 < len(s) && s[i+1] == '\n' {
			i += 2
			continue
		}
		if i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n' {
			i += 3
			continue
		}
		if i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				out.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		out.WriteByte('=')
		i++
	}
	return out.Bytes()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// NormalizeCharset maps common charset aliases to their canonical names.
// Plain ASCII declarations are treated as UTF-8, which is a superset.
func NormalizeCharset(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf8", "utf-8", "us-ascii", "ascii":
		return "utf-8"
	case "latin1", "latin-1":
		return "iso-8859-1"
	case "cp1252", "win-1252":
		return "windows-1252"
	}
	return name
}

// DecodeBytes converts raw bytes to a string using the named charset.
// Unknown charset names and decoder failures fall back to permissive UTF-8.
// The result is always valid UTF-8.
func DecodeBytes(b []byte, charsetName string) string {
	name := NormalizeCharset(charsetName)
	if name != "utf-8" {
		if r, err := charset.Reader(name, bytes.NewReader(b)); err == nil {
			if decoded, err := io.ReadAll(r); err == nil {
				b = decoded
			}
		}
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// EncodeBytes converts a string back to the named charset, substituting
// characters the charset cannot represent. Unknown charsets fall back to
// UTF-8 bytes so the caller always gets a usable payload.
func EncodeBytes(s, charsetName string) []byte {
	name := NormalizeCharset(charsetName)
	if name == "utf-8" {
		return []byte(s)
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		return []byte(s)
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

var encodedWordRE = regexp.MustCompile(`=\?([^?]+)\?([bBqQ])\?([^?]*)\?=`)

// DecodeHeader decodes RFC 2047 encoded words in a header value.
// Example: =?UTF-8?B?SGVsbG8=?= -> Hello. Tokens that fail to decode stay in
// place verbatim and surrounding plain text is untouched.
func DecodeHeader(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	return encodedWordRE.ReplaceAllStringFunc(s, func(token string) string {
		m := encodedWordRE.FindStringSubmatch(token)
		cs, enc, payload := m[1], m[2], m[3]
		var raw []byte
		switch enc {
		case "b", "B":
			data, err := DecodeBase64(payload)
			if err != nil {
				return token
			}
			raw = data
		default: // q, Q
			raw = DecodeQuotedPrintable(strings.ReplaceAll(payload, "_", " "))
		}
		return DecodeBytes(raw, cs)
	})
}

// EstimateDecodedSize bounds the decoded length of a body without decoding
// it: base64 shrinks by the 3/4 ratio, everything else keeps its length.
func EstimateDecodedSize(body, transferEncoding string) int {
	if strings.EqualFold(strings.TrimSpace(transferEncoding), "base64") {
		return len(wsStripper.Replace(body)) * 3 / 4
	}
	return len(body)
}

// DecodeBinary decodes a part body per its transfer encoding, returning raw
// bytes. Failed base64 and unknown encodings return the body bytes as-is.
func DecodeBinary(body, transferEncoding string) []byte {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		if data, err := DecodeBase64(body); err == nil {
			return data
		}
		return []byte(body)
	case "quoted-printable":
		return DecodeQuotedPrintable(body)
	default:
		return []byte(body)
	}
}

// DecodeBody decodes a text part body per its transfer encoding and charset.
func DecodeBody(body, transferEncoding, charsetName string) string {
	return DecodeBytes(DecodeBinary(body, transferEncoding), charsetName)
}
