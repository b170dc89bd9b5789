package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dhcgn/vmsg2csv/model"
	"github.com/dhcgn/vmsg2csv/state"
	"github.com/dhcgn/vmsg2csv/stats"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pipeline struct {
	runner    *Runner
	collector *stats.Collector

	mu       sync.Mutex
	received []model.Message
}

func newPipeline(t *testing.T, tracker state.Tracker, envelopes []model.Envelope) *pipeline {
	t.Helper()
	r, err := New(context.Background(), tracker, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := &pipeline{runner: r, collector: stats.NewCollector()}

	r.SubscribeStats("test", func(ctx context.Context, events <-chan stats.Event) error {
		p.collector.Run(ctx, events)
		return nil
	})
	r.AddStage("producer", func(ctx context.Context) error {
		defer r.CloseComposed()
		for _, env := range envelopes {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.ComposedWriter() <- env:
			}
		}
		return nil
	})
	r.AddStage("consumer", func(ctx context.Context) error {
		for msg := range r.Uploads() {
			p.mu.Lock()
			p.received = append(p.received, msg)
			p.mu.Unlock()
		}
		return nil
	})
	return p
}

func envelope(i int) model.Envelope {
	return model.Envelope{Message: model.Message{
		ID:   fmt.Sprintf("id-%d@sms.invalid", i),
		Hash: fmt.Sprintf("hash-%d", i),
	}}
}

func TestRunner_SkipsKnownMessages(t *testing.T) {
	tracker := state.NewMemoryTracker()
	if err := tracker.MarkProcessed("hash-2", "id-2@sms.invalid"); err != nil {
		t.Fatal(err)
	}

	p := newPipeline(t, tracker, []model.Envelope{envelope(1), envelope(2), envelope(3)})
	if err := p.runner.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if len(p.received) != 2 || p.received[0].ID != "id-1@sms.invalid" || p.received[1].ID != "id-3@sms.invalid" {
		t.Fatalf("received %+v, want id-1 and id-3", p.received)
	}

	summary := p.collector.Snapshot()
	if summary.Scanned != 3 || summary.Enqueued != 2 || summary.Duplicates != 1 {
		t.Errorf("summary = %+v, want 3 scanned, 2 enqueued, 1 duplicate", summary)
	}
}

func TestRunner_ComposeErrorFails(t *testing.T) {
	boom := errors.New("boom")
	p := newPipeline(t, state.NewMemoryTracker(), []model.Envelope{envelope(1), {Err: boom}, envelope(3)})

	err := p.runner.Start()
	if !errors.Is(err, boom) {
		t.Fatalf("Start() error = %v, want %v", err, boom)
	}
}

func TestRunner_MissingID(t *testing.T) {
	p := newPipeline(t, state.NewMemoryTracker(), []model.Envelope{{Message: model.Message{Hash: "h"}}})

	if err := p.runner.Start(); !errors.Is(err, ErrMessageIDMissing) {
		t.Fatalf("Start() error = %v, want ErrMessageIDMissing", err)
	}
}

func TestNew_NilTracker(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil tracker")
	}
}
