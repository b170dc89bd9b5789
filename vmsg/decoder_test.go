package vmsg

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// escapeAll writes every byte of s as an =XX escape, doubling the "=" of
// every third escape the way exporters do when they fold a long line.
func escapeAll(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('=')
		}
		fmt.Fprintf(&sb, "=%02X", s[i])
	}
	return sb.String()
}

func TestQuotedPrintable_RoundTrip(t *testing.T) {
	texts := []string{
		"012345",
		"你好,世界",
		"Zug fährt um 10:30 ab; Gleis 7 = Ersatz",
		"emoji 😀 and tabs\tinside",
		"多行\n短信",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			got, err := QuotedPrintable{}.Decode(escapeAll(text), "UTF-8")
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != text {
				t.Errorf("Decode() = %q, want %q", got, text)
			}
		})
	}
}

func TestQuotedPrintable_Decode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		charset string
		want    string
		wantErr bool
	}{
		{name: "plain escapes", raw: "=30=31=32", want: "012"},
		{name: "literal text passes", raw: "abc=3Ddef", want: "abc=def"},
		{name: "lower-case hex", raw: "=e4=bd=a0", want: "你"},
		{name: "doubled equals", raw: "=E4=BD==A0", want: "你"},
		{name: "dangling soft break", raw: "=41=42=", want: "AB"},
		{name: "latin1 charset", raw: "=E4", charset: "ISO-8859-1", want: "ä"},
		{name: "truncated escape", raw: "=4", wantErr: true},
		{name: "non-hex escape", raw: "=ZZ", wantErr: true},
		{name: "invalid utf-8", raw: "=C3=28", wantErr: true},
		{name: "unknown charset", raw: "=41", charset: "x-no-such-charset", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuotedPrintable{}.Decode(tt.raw, tt.charset)
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("Decode() error = %v, want ErrDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLegacyHex_Decode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare hex", raw: "303132", want: "012"},
		{name: "equals stripped", raw: "=30=31=32", want: "012"},
		{name: "utf-8", raw: "E4BDA0E5A5BD", want: "你好"},
		{name: "odd length", raw: "303", wantErr: true},
		{name: "not hex", raw: "zz", wantErr: true},
		{name: "invalid utf-8", raw: "FFFE", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LegacyHex{}.Decode(tt.raw, "")
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Fatalf("Decode() error = %v, want ErrDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDecoder(t *testing.T) {
	tests := []struct {
		format  string
		want    BodyDecoder
		wantErr bool
	}{
		{format: "", want: QuotedPrintable{}},
		{format: "qp", want: QuotedPrintable{}},
		{format: "QP", want: QuotedPrintable{}},
		{format: "hex", want: LegacyHex{}},
		{format: "base64", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := NewDecoder(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDecoder(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NewDecoder(%q) = %T, want %T", tt.format, got, tt.want)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in     string
		millis int
		want   string
	}{
		{in: "2014/06/29 09:38:53 GMT", millis: 0, want: "2014-06-29T09:38:53.000Z"},
		{in: " 2014/06/29 09:38:53 GMT", millis: 42, want: "2014-06-29T09:38:53.042Z"},
		{in: "2014/06/29 09:38:53", millis: 999, want: "2014-06-29T09:38:53.999Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeDate(tt.in, tt.millis); got != tt.want {
				t.Errorf("normalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
