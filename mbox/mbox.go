package mbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/vmsg2csv/atomicfile"
	"github.com/dhcgn/vmsg2csv/model"
	"github.com/dhcgn/vmsg2csv/runner"
)

// Export writes records to path as an mbox archive. The file is replaced
// atomically, a failing record leaves any previous archive untouched.
func Export(path string, records []model.Record, opts ComposeOptions) (int, error) {
	count := 0
	err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
		mw := mboxlib.NewWriter(w)
		for i, rec := range records {
			msg, err := Compose(rec, opts)
			if err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			if err := writeMessage(mw, msg, envelopeSender(rec, opts)); err != nil {
				return fmt.Errorf("record %d: %w", i+1, err)
			}
			count++
		}
		return mw.Close()
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func writeMessage(mw *mboxlib.Writer, msg model.Message, from string) error {
	w, err := mw.CreateMessage(from, msg.ReceivedAt)
	if err != nil {
		return fmt.Errorf("create mbox message: %w", err)
	}
	// mbox files use bare LF line endings.
	if _, err := w.Write(bytes.ReplaceAll(msg.Raw, []byte("\r\n"), []byte("\n"))); err != nil {
		return fmt.Errorf("write mbox message: %w", err)
	}
	return nil
}

func envelopeSender(rec model.Record, opts ComposeOptions) string {
	if rec.Direction == model.DirectionSent {
		return opts.Owner
	}
	return phoneAddress(rec.Phone, opts.Domain)
}

// CountMessages counts the total number of messages in an mbox file.
func CountMessages(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return 0, err
		}
		if _, err := io.Copy(io.Discard, msgReader); err != nil {
			return 0, fmt.Errorf("message %d: %w", count, err)
		}
		count++
	}
}

// Read iterates over the messages of an mbox file.
func Read(path string, callback func(*mail.Message) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for idx := 0; ; idx++ {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		msg, err := mail.ReadMessage(msgReader)
		if err != nil {
			return fmt.Errorf("message %d: %w", idx, err)
		}
		if err := callback(msg); err != nil {
			return err
		}
	}
}

// Producer feeds composed records into a runner.
type Producer struct {
	records []model.Record
	opts    ComposeOptions
	runner  *runner.Runner
	logger  *slog.Logger
}

func NewProducer(records []model.Record, opts ComposeOptions, r *runner.Runner, logger *slog.Logger) *Producer {
	producer := &Producer{records: records, opts: opts, runner: r, logger: logger}
	r.AddStage("compose", producer.run)
	return producer
}

func (p *Producer) run(ctx context.Context) error {
	defer p.runner.CloseComposed()

	out := p.runner.ComposedWriter()
	for i, rec := range p.records {
		env := model.Envelope{}
		msg, err := Compose(rec, p.opts)
		if err != nil {
			env.Err = fmt.Errorf("record %d: %w", i+1, err)
			if p.logger != nil {
				p.logger.Error("compose failed", "record", i+1, "err", err)
			}
		} else {
			env.Message = msg
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- env:
		}
		if env.Err != nil {
			return nil
		}
	}
	return nil
}
