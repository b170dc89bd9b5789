package vmsg

import (
	"encoding/hex"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

const (
	FormatQuotedPrintable = "qp"
	FormatLegacyHex       = "hex"
)

// BodyDecoder turns the raw concatenated Subject value of a message block into
// text. Exporter revisions encode bodies differently, so the decoder is picked
// by configuration and never guessed from the input.
type BodyDecoder interface {
	Decode(raw, charset string) (string, error)
}

// NewDecoder returns the decoder for a format name.
func NewDecoder(format string) (BodyDecoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatQuotedPrintable:
		return QuotedPrintable{}, nil
	case FormatLegacyHex:
		return LegacyHex{}, nil
	default:
		return nil, fmt.Errorf("unknown body format %q", format)
	}
}

// QuotedPrintable decodes bodies written by current exporters: =XX escapes,
// with a doubled "==" wherever the exporter folded a line inside an escape.
type QuotedPrintable struct{}

func (QuotedPrintable) Decode(raw, charset string) (string, error) {
	raw = strings.ReplaceAll(raw, "==", "=")
	if err := checkEscapes(raw); err != nil {
		return "", err
	}
	// Folded lines are already joined, a trailing "=" is a dangling soft break.
	raw = strings.TrimSuffix(raw, "=")

	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return decodeCharset(b, charset)
}

// checkEscapes rejects "=" not followed by two hex digits. The stdlib reader
// would silently keep those as literal "=".
func checkEscapes(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' || i == len(s)-1 {
			continue
		}
		if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
			return fmt.Errorf("%w: malformed escape at offset %d", ErrDecode, i)
		}
		i += 2
	}
	return nil
}

func isHex(b byte) bool {
	return ('0' <= b && b <= '9') || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

// LegacyHex decodes bodies of the first exporter revision, where the whole
// Subject value is one hex string and "=" only separates byte pairs.
type LegacyHex struct{}

func (LegacyHex) Decode(raw, charset string) (string, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(raw, "=", ""))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return decodeCharset(b, charset)
}

func decodeCharset(b []byte, charset string) (string, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8", "us-ascii":
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: content is not valid UTF-8", ErrDecode)
		}
		return string(b), nil
	}

	enc, _ := ianaindex.MIME.Encoding(charset)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(charset)
	}
	if enc == nil {
		return "", fmt.Errorf("%w: unsupported charset %q", ErrDecode, charset)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: charset %s: %v", ErrDecode, charset, err)
	}
	return string(out), nil
}
