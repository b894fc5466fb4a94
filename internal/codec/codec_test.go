package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase64(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "plain",
			input:    "SGVsbG8=",
			expected: "Hello",
		},
		{
			name:     "embedded whitespace",
			input:    "SGVs\r\n bG8=\n",
			expected: "Hello",
		},
		{
			name:     "missing padding",
			input:    "SGVsbG8",
			expected: "Hello",
		},
		{
			name:    "not base64",
			input:   "!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodeBase64(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestDecodeQuotedPrintable(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "hex escape",
			input:    "Hello=20World",
			expected: "Hello World",
		},
		{
			name:     "lowercase hex",
			input:    "=c3=a9",
			expected: "\xc3\xa9",
		},
		{
			name:     "soft line break CRLF",
			input:    "Line1=\r\nLine2",
			expected: "Line1Line2",
		},
		{
			name:     "soft line break LF",
			input:    "Line1=\nLine2",
			expected: "Line1Line2",
		},
		{
			name:     "malformed escape passes through",
			input:    "100% =done",
			expected: "100% =done",
		},
		{
			name:     "trailing equals",
			input:    "abc=",
			expected: "abc=",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(DecodeQuotedPrintable(tt.input)))
		})
	}
}

func TestNormalizeCharset(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"UTF-8", "utf-8"},
		{"utf8", "utf-8"},
		{"us-ascii", "utf-8"},
		{"ASCII", "utf-8"},
		{"", "utf-8"},
		{"latin1", "iso-8859-1"},
		{"cp1252", "windows-1252"},
		{"ISO-8859-1", "iso-8859-1"},
		{"koi8-r", "koi8-r"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeCharset(tt.input), "input %q", tt.input)
	}
}

func TestDecodeBytes(t *testing.T) {
	t.Run("utf-8 passthrough", func(t *testing.T) {
		assert.Equal(t, "héllo", DecodeBytes([]byte("héllo"), "utf-8"))
	})

	t.Run("iso-8859-1", func(t *testing.T) {
		assert.Equal(t, "café", DecodeBytes([]byte("caf\xe9"), "iso-8859-1"))
	})

	t.Run("windows-1252 curly quotes", func(t *testing.T) {
		assert.Equal(t, "“Hi”", DecodeBytes([]byte("\x93Hi\x94"), "windows-1252"))
	})

	t.Run("unknown charset falls back to utf-8", func(t *testing.T) {
		// Must return a string without failing, per the decode contract
		assert.Equal(t, "hello", DecodeBytes([]byte("hello"), "bogus-9999"))
	})

	t.Run("invalid utf-8 is replaced", func(t *testing.T) {
		out := DecodeBytes([]byte("ab\xffcd"), "utf-8")
		assert.Contains(t, out, "ab")
		assert.Contains(t, out, "cd")
		assert.True(t, strings.ContainsRune(out, '�'))
	})
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "base64 word",
			input:    "=?UTF-8?B?SGVsbG8=?=",
			expected: "Hello",
		},
		{
			name:     "quoted-printable word",
			input:    "=?UTF-8?Q?Invitaci=C3=B3n?=",
			expected: "Invitación",
		},
		{
			name:     "underscore becomes space",
			input:    "=?utf-8?q?caf=C3=A9_time?=",
			expected: "café time",
		},
		{
			name:     "iso-8859-1 word",
			input:    "=?ISO-8859-1?Q?caf=E9?=",
			expected: "café",
		},
		{
			name:     "unknown charset decodes as utf-8",
			input:    "=?bogus-9999?B?SGVsbG8=?=",
			expected: "Hello",
		},
		{
			name:     "surrounding text untouched",
			input:    "Re: =?UTF-8?B?SGVsbG8=?= world",
			expected: "Re: Hello world",
		},
		{
			name:     "malformed base64 stays verbatim",
			input:    "=?UTF-8?B?!!!?=",
			expected: "=?UTF-8?B?!!!?=",
		},
		{
			name:     "plain text",
			input:    "Simple Subject",
			expected: "Simple Subject",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeHeader(tt.input))
		})
	}
}

func TestEstimateDecodedSize(t *testing.T) {
	// 8 base64 chars after whitespace stripping -> 6 decoded bytes
	assert.Equal(t, 6, EstimateDecodedSize("SGVs bG8=", "base64"))
	assert.Equal(t, 6, EstimateDecodedSize("SGVsbG8=", "BASE64"))
	assert.Equal(t, 11, EstimateDecodedSize("hello world", "7bit"))
	assert.Equal(t, 11, EstimateDecodedSize("hello world", ""))
}

func TestDecodeBinary(t *testing.T) {
	assert.Equal(t, "Hello", string(DecodeBinary("SGVsbG8=", "base64")))
	assert.Equal(t, "a b", string(DecodeBinary("a=20b", "quoted-printable")))
	assert.Equal(t, "raw", string(DecodeBinary("raw", "7bit")))

	// Unusable base64 falls back to the raw body text
	assert.Equal(t, "!!!", string(DecodeBinary("!!!", "base64")))
}

func TestDecodeBody(t *testing.T) {
	assert.Equal(t, "café", DecodeBody("caf=E9", "quoted-printable", "iso-8859-1"))
	assert.Equal(t, "Hello", DecodeBody("SGVsbG8=", "base64", "utf-8"))
}

func TestEncodeBytes(t *testing.T) {
	assert.Equal(t, []byte("café"), EncodeBytes("café", "utf-8"))
	assert.Equal(t, []byte("caf\xe9"), EncodeBytes("café", "iso-8859-1"))
	assert.Equal(t, []byte("caf\xe9"), EncodeBytes("café", "latin1"))
	assert.Equal(t, []byte("\x93Hi\x94"), EncodeBytes("“Hi”", "windows-1252"))

	// Unknown charsets keep the UTF-8 bytes
	assert.Equal(t, []byte("text"), EncodeBytes("text", "bogus-9999"))

	// Characters outside the charset are substituted, not dropped
	out := EncodeBytes("a😀b", "iso-8859-1")
	assert.Len(t, out, 3)
	assert.Equal(t, byte('a'), out[0])
	assert.Equal(t, byte('b'), out[2])
}

func TestEncodeBytes_RoundTrip(t *testing.T) {
	encoded := EncodeBytes("café “x”", "windows-1252")
	assert.Equal(t, "café “x”", DecodeBytes(encoded, "windows-1252"))
}
