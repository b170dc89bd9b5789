// Package vmsg parses the BEGIN/END block format mobile phones use to back up
// short messages.
//
//	BEGIN:VMSG
//	X-MESSAGE-TYPE:DELIVER
//	BEGIN:VCARD
//	TEL:+86138xxxxxxxx
//	END:VCARD
//	BEGIN:VBODY
//	Date:2014/06/29 09:38:53 GMT
//	Subject;ENCODING=QUOTED-PRINTABLE;CHARSET=UTF-8:=30=31=32=33=34=35
//	END:VBODY
//	END:VMSG
package vmsg

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/dhcgn/vmsg2csv/model"
)

const (
	blockMessage = "VMSG"
	blockContact = "VCARD"
	blockBody    = "VBODY"
)

const (
	markerBegin = "BEGIN:"
	markerEnd   = "END:"

	keyMessageType = "X-MESSAGE-TYPE"
	keyTel         = "TEL"
	keyBox         = "X-BOX"
	keyRead        = "X-READ"
	keySimID       = "X-SIMID"
	keyLocked      = "X-LOCKED"
	keyType        = "X-TYPE" // also X-TYPEEX
	keyDate        = "Date"
	keySubject     = "Subject"

	typeSubmit   = "SUBMIT"
	boxInbox     = "INBOX"
	chinaPrefix  = "+86"
	paramCharset = "CHARSET"

	maxLineSize = 4 * 1024 * 1024
)

// Options configure a Parser.
type Options struct {
	// Decoder decodes sealed message bodies. Nil means QuotedPrintable.
	Decoder BodyDecoder
	// Millis fills the millisecond part of timestamps. Nil means random.
	Millis func() int
	Logger *slog.Logger
}

type Parser struct {
	decoder BodyDecoder
	millis  func() int
	logger  *slog.Logger
}

func NewParser(opts Options) *Parser {
	p := &Parser{
		decoder: opts.Decoder,
		millis:  opts.Millis,
		logger:  opts.Logger,
	}
	if p.decoder == nil {
		p.decoder = QuotedPrintable{}
	}
	if p.millis == nil {
		p.millis = func() int { return rand.Intn(1000) }
	}
	return p
}

// ParseFile parses the vmsg file at path.
func (p *Parser) ParseFile(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vmsg: %w", err)
	}
	defer file.Close()
	return p.Parse(file)
}

// Parse walks r line by line and returns one sealed record per message block,
// in input order. The first error aborts the walk and no records are returned.
func (p *Parser) Parse(r io.Reader) ([]model.Record, error) {
	w := &walk{parser: p}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		w.line++
		if err := w.step(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, &ParseError{Line: w.line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vmsg: %w", err)
	}

	if len(w.stack) > 0 {
		err := fmt.Errorf("%w: %s still open at end of input", ErrUnbalancedBlock, w.stack[len(w.stack)-1])
		return nil, &ParseError{Line: w.line, Err: err}
	}

	if p.logger != nil {
		p.logger.Debug("vmsg parsed", "lines", w.line, "records", len(w.records))
	}
	return w.records, nil
}

// walk is the state of a single Parse call.
type walk struct {
	parser  *Parser
	line    int
	stack   []string
	records []model.Record
	open    []openMessage
}

// openMessage tracks a message block that has not been closed yet.
type openMessage struct {
	index   int
	charset string
}

func (w *walk) step(line string) error {
	switch {
	case strings.HasPrefix(line, markerBegin):
		return w.begin(strings.TrimSpace(line[len(markerBegin):]))
	case strings.HasPrefix(line, markerEnd):
		return w.end(strings.TrimSpace(line[len(markerEnd):]))
	default:
		w.attribute(line)
		return nil
	}
}

func (w *walk) begin(name string) error {
	if name == "" {
		return fmt.Errorf("%w: BEGIN", ErrMalformedBlock)
	}
	w.stack = append(w.stack, name)

	if name == blockMessage {
		w.records = append(w.records, model.NewRecord())
		w.open = append(w.open, openMessage{index: len(w.records) - 1})
	}
	return nil
}

func (w *walk) end(name string) error {
	if name == "" {
		return fmt.Errorf("%w: END", ErrMalformedBlock)
	}
	if len(w.stack) == 0 {
		return fmt.Errorf("%w: END:%s without open block", ErrUnbalancedBlock, name)
	}
	if top := w.stack[len(w.stack)-1]; name != top {
		return fmt.Errorf("%w: END:%s while %s is open", ErrUnbalancedBlock, name, top)
	}
	w.stack = w.stack[:len(w.stack)-1]

	if name != blockMessage {
		return nil
	}
	msg := w.open[len(w.open)-1]
	w.open = w.open[:len(w.open)-1]
	return w.seal(msg)
}

func (w *walk) seal(msg openMessage) error {
	rec := &w.records[msg.index]
	if rec.Content == "" {
		return fmt.Errorf("message %d: %w", msg.index+1, ErrMissingContent)
	}
	content, err := w.parser.decoder.Decode(rec.Content, msg.charset)
	if err != nil {
		return fmt.Errorf("message %d: %w", msg.index+1, err)
	}
	rec.Content = content
	return nil
}

func (w *walk) attribute(line string) {
	if len(w.stack) == 0 || len(w.open) == 0 {
		return
	}
	msg := &w.open[len(w.open)-1]
	rec := &w.records[msg.index]

	switch w.stack[len(w.stack)-1] {
	case blockMessage:
		if strings.HasPrefix(line, keyMessageType) {
			rec.Direction = directionFromType(value(line))
		}
	case blockContact:
		if strings.HasPrefix(line, keyTel) {
			rec.Phone = strings.TrimPrefix(value(line), chinaPrefix)
		}
	case blockBody:
		w.bodyAttribute(msg, rec, line)
	}
}

func (w *walk) bodyAttribute(msg *openMessage, rec *model.Record, line string) {
	switch {
	case strings.HasPrefix(line, keyBox):
		rec.Direction = directionFromBox(value(line))
	case hasAnyPrefix(line, keyRead, keySimID, keyLocked, keyType):
	case strings.HasPrefix(line, keyDate):
		rec.Timestamp = normalizeDate(value(line), w.parser.millis())
	case strings.HasPrefix(line, keySubject):
		key, val, _ := strings.Cut(line, ":")
		msg.charset = param(key, paramCharset)
		rec.Content = val
	case !strings.Contains(line, ":"):
		// folded quoted-printable continuation
		rec.Content += line
	default:
		if w.parser.logger != nil {
			key, _, _ := strings.Cut(line, ":")
			w.parser.logger.Debug("ignoring unknown attribute", "line", w.line, "key", key)
		}
	}
}

func directionFromType(v string) model.Direction {
	if v == typeSubmit {
		return model.DirectionSent
	}
	return model.DirectionReceived
}

func directionFromBox(v string) model.Direction {
	if v == boxInbox {
		return model.DirectionReceived
	}
	return model.DirectionSent
}

// value returns the text after the first colon.
func value(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

// param looks up a ";NAME=value" parameter of an attribute key.
func param(key, name string) string {
	parts := strings.Split(key, ";")
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
