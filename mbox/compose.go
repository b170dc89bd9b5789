package mbox

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/dhcgn/vmsg2csv/model"
)

const subjectRunes = 40

// idNamespace scopes the name-based UUIDs used as Message-IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dhcgn/vmsg2csv"))

// ComposeOptions controls how a record is rendered as an email.
type ComposeOptions struct {
	// Owner is the address of the device owner.
	Owner string
	// Domain is appended to phone numbers, e.g. 10086@sms.invalid.
	Domain string
}

// Compose renders rec as a single-part text/plain RFC 5322 message.
//
// The Message-ID is a name-based UUID over phone, direction, the second-level
// timestamp and the content, so composing the same backup twice yields the
// same IDs and hashes even though the millisecond filler differs.
func Compose(rec model.Record, opts ComposeOptions) (model.Message, error) {
	id := MessageID(rec, opts.Domain)

	peer := &mail.Address{Name: rec.Phone, Address: phoneAddress(rec.Phone, opts.Domain)}
	owner := &mail.Address{Address: opts.Owner}
	from, to := peer, owner
	if rec.Direction == model.DirectionSent {
		from, to = owner, peer
	}

	var h mail.Header
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(Subject(rec.Content))
	h.SetMessageID(id)

	var receivedAt time.Time
	if rec.Timestamp != "" {
		t, err := rec.Time()
		if err != nil {
			return model.Message{}, fmt.Errorf("record timestamp %q: %w", rec.Timestamp, err)
		}
		receivedAt = t
		h.SetDate(t)
	}

	h.Set("X-SMS-Phone", rec.Phone)
	h.Set("X-SMS-Direction", string(rec.Direction))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return model.Message{}, fmt.Errorf("create message writer: %w", err)
	}
	if _, err := io.WriteString(w, rec.Content); err != nil {
		_ = w.Close()
		return model.Message{}, fmt.Errorf("write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return model.Message{}, fmt.Errorf("close message writer: %w", err)
	}

	raw := buf.Bytes()
	sum := sha256.Sum256(raw)

	return model.Message{
		ID:         id,
		Hash:       base64.StdEncoding.EncodeToString(sum[:]),
		ReceivedAt: receivedAt,
		Size:       int64(len(raw)),
		Raw:        raw,
	}, nil
}

// MessageID returns the stable Message-ID (without angle brackets) of rec.
func MessageID(rec model.Record, domain string) string {
	stamp := rec.Timestamp
	if len(stamp) > len("2006-01-02T15:04:05") {
		stamp = stamp[:len("2006-01-02T15:04:05")]
	}
	name := strings.Join([]string{rec.Phone, string(rec.Direction), stamp, rec.Content}, "\x00")
	return uuid.NewSHA1(idNamespace, []byte(name)).String() + "@" + domain
}

// Subject returns the first line of content, shortened to a readable length.
func Subject(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= subjectRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:subjectRunes]) + "…"
}

func phoneAddress(phone, domain string) string {
	local := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '+':
			return r
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		}
		return -1
	}, phone)
	if local == "" {
		local = "unknown"
	}
	return local + "@" + domain
}
