package imap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dhcgn/vmsg2csv/model"
	"github.com/dhcgn/vmsg2csv/runner"
	"github.com/dhcgn/vmsg2csv/state"
	"github.com/dhcgn/vmsg2csv/stats"
)

const DefaultFolder = "SMS"

var (
	ErrMissingMessageID = errors.New("message id is empty")
)

type Options struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	TargetFolder       string
	// MarkSeen stores uploaded messages with the \Seen flag.
	MarkSeen bool
	DryRun   bool
}

// appender is the part of an IMAP session the uploader needs.
type appender interface {
	Append(msg model.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, opts Options, logger *slog.Logger) (appender, error)

// Uploader appends every message coming out of the runner to the target
// folder and records it in the tracker.
type Uploader struct {
	opts    Options
	runner  *runner.Runner
	tracker state.Tracker
	uploads <-chan model.Message
	logger  *slog.Logger
	dial    dialFunc
}

func NewUploader(opts Options, r *runner.Runner, logger *slog.Logger) (*Uploader, error) {
	if !opts.DryRun {
		if opts.Host == "" {
			return nil, fmt.Errorf("imap host is empty")
		}
		if opts.Port <= 0 {
			return nil, fmt.Errorf("imap port must be positive")
		}
	}
	if opts.TargetFolder == "" {
		opts.TargetFolder = DefaultFolder
	}
	tracker := r.Tracker()
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	uploader := &Uploader{
		opts:    opts,
		runner:  r,
		tracker: tracker,
		uploads: r.Uploads(),
		logger:  logger,
		dial:    dialSession,
	}
	r.AddStage("imap", uploader.run)
	return uploader, nil
}

func (u *Uploader) run(ctx context.Context) error {
	var sess appender
	defer func() {
		if sess == nil {
			return
		}
		if err := sess.Close(); err != nil && u.logger != nil {
			u.logger.Debug("imap session closed", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-u.uploads:
			if !ok {
				return nil
			}
			if msg.ID == "" {
				u.emitError(msg, ErrMissingMessageID)
				continue
			}
			if msg.Hash == "" {
				err := fmt.Errorf("message %s missing hash", msg.ID)
				u.emitError(msg, err)
				return err
			}

			if u.opts.DryRun {
				if err := u.tracker.MarkProcessed(msg.Hash, msg.ID); err != nil {
					u.emitError(msg, err)
					return err
				}
				u.runner.EmitEvent(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeDryRunUpload, MessageID: msg.ID})
				if u.logger != nil {
					u.logger.Debug("dry-run upload", "messageID", msg.ID, "target", u.opts.TargetFolder, "size", msg.Size)
				}
				continue
			}

			if sess == nil {
				var err error
				sess, err = u.dial(ctx, u.opts, u.logger)
				if err != nil {
					u.emitError(msg, err)
					return err
				}
			}

			if err := sess.Append(msg); err != nil {
				err = fmt.Errorf("upload message %s: %w", msg.ID, err)
				u.emitError(msg, err)
				return err
			}

			if err := u.tracker.MarkProcessed(msg.Hash, msg.ID); err != nil {
				u.emitError(msg, err)
				return err
			}

			u.runner.EmitEvent(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeUploaded, MessageID: msg.ID})
			if u.logger != nil {
				u.logger.Debug("uploaded message", "messageID", msg.ID, "target", u.opts.TargetFolder, "hash", msg.Hash)
			}
		}
	}
}

func (u *Uploader) emitError(msg model.Message, err error) {
	u.runner.EmitEvent(stats.Event{Stage: stats.StageIMAP, Type: stats.EventTypeError, MessageID: msg.ID, Err: err})
}
