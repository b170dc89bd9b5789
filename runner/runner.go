package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dhcgn/vmsg2csv/model"
	"github.com/dhcgn/vmsg2csv/state"
	"github.com/dhcgn/vmsg2csv/stats"
)

var ErrMessageIDMissing = errors.New("composed message missing id")

type StageFunc func(context.Context) error

// Runner wires the compose stage to the upload stage: composed envelopes go
// through a bridge that drops messages the tracker already knows.
type Runner struct {
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	composed chan model.Envelope
	uploads  chan model.Message
	events   chan stats.Event

	tracker state.Tracker

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeComposedOnce sync.Once
	closeUploadsOnce  sync.Once
	closeEventsOnce   sync.Once
	since             time.Time
}

func New(ctx context.Context, tracker state.Tracker, logger *slog.Logger) (*Runner, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)

	r := &Runner{
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		composed: make(chan model.Envelope, 32),
		uploads:  make(chan model.Message, 32),
		events:   make(chan stats.Event, 128),
		tracker:  tracker,
	}

	r.AddStage("bridge", r.bridge)
	return r, nil
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

func (r *Runner) Tracker() state.Tracker {
	return r.tracker
}

// ComposedWriter is where the compose stage sends its envelopes.
func (r *Runner) ComposedWriter() chan<- model.Envelope {
	return r.composed
}

func (r *Runner) CloseComposed() {
	r.closeComposedOnce.Do(func() {
		close(r.composed)
	})
}

func (r *Runner) Uploads() <-chan model.Message {
	return r.uploads
}

func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

// Start waits for every stage and stats subscriber and returns the first error.
func (r *Runner) Start() error {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	r.errMu.Lock()
	err := r.err
	r.errMu.Unlock()

	duration := time.Since(r.since)
	if err != nil {
		r.logger.Error("pipeline failed", "duration", duration, "err", err)
		return err
	}

	r.logger.Info("pipeline completed", "duration", duration)
	return nil
}

func (r *Runner) bridge(ctx context.Context) error {
	defer r.closeUploads()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.composed:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				r.EmitEvent(stats.Event{Stage: stats.StageCompose, Type: stats.EventTypeError, Err: envelope.Err})
				r.fail(fmt.Errorf("compose envelope: %w", envelope.Err))
				continue
			}

			msg := envelope.Message
			r.EmitEvent(stats.Event{Stage: stats.StageCompose, Type: stats.EventTypeScanned, MessageID: msg.ID})

			if msg.ID == "" {
				r.EmitEvent(stats.Event{Stage: stats.StageCompose, Type: stats.EventTypeError, Err: ErrMessageIDMissing})
				r.fail(ErrMessageIDMissing)
				continue
			}

			if msg.Hash != "" && r.tracker.AlreadyProcessed(msg.Hash) {
				r.EmitEvent(stats.Event{Stage: stats.StageCompose, Type: stats.EventTypeDuplicate, MessageID: msg.ID})
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.uploads <- msg:
				r.EmitEvent(stats.Event{Stage: stats.StageCompose, Type: stats.EventTypeEnqueued, MessageID: msg.ID})
			}
		}
	}
}

func (r *Runner) closeUploads() {
	r.closeUploadsOnce.Do(func() {
		close(r.uploads)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
