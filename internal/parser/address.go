package parser

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/annolab/emlkit/internal/codec"
)

var nameAddrRE = regexp.MustCompile(`^\s*"?([^"<]*)"?\s*<([^>]*)>\s*$`)

// ParseAddressList parses one address header value. Tokens are split on
// commas outside quoted strings and RFC 2047-decoded before matching;
// tokens that match no address pattern degrade to a bare email.
func ParseAddressList(value string) []Address {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []Address
	for _, tok := range splitAddressTokens(value) {
		tok = strings.TrimSpace(codec.DecodeHeader(tok))
		if tok == "" {
			continue
		}
		out = append(out, parseAddress(tok))
	}
	return out
}

func splitAddressTokens(value string) []string {
	var tokens []string
	inQuote := false
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				tokens = append(tokens, value[start:i])
				start = i + 1
			}
		}
	}
	return append(tokens, value[start:])
}

func parseAddress(tok string) Address {
	if a, err := mail.ParseAddress(tok); err == nil {
		return Address{Name: a.Name, Email: a.Address}
	}
	if m := nameAddrRE.FindStringSubmatch(tok); m != nil {
		return Address{Name: strings.TrimSpace(m[1]), Email: strings.TrimSpace(m[2])}
	}
	return Address{Email: strings.Trim(tok, "<> ")}
}

// ParseDate parses an RFC 5322 date header value, returning the zero time
// when the value is missing or unparsable.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
