package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStartRunsImmediately(t *testing.T) {
	done := make(chan struct{}, 1)
	var runs atomic.Int32

	s := New("@every 1h", func(ctx context.Context) error {
		runs.Add(1)
		done <- struct{}{}
		return nil
	}, zap.NewNop())

	if err := s.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("job did not run")
	}
	if runs.Load() != 1 {
		t.Fatalf("expected 1 run, got %d", runs.Load())
	}
}

func TestInvalidSpec(t *testing.T) {
	s := New("not a spec", func(context.Context) error { return nil }, nil)
	if err := s.Start(context.Background(), false); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestRunLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New("@every 1h", func(context.Context) error { return errors.New("store down") }, zap.New(core))

	s.run(context.Background())

	if logs.FilterMessage("scheduled run failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
}

func TestRunSkipsCancelledContext(t *testing.T) {
	var runs atomic.Int32
	s := New("@every 1h", func(context.Context) error { runs.Add(1); return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.run(ctx)

	if runs.Load() != 0 {
		t.Fatalf("job must not run after cancellation")
	}
}
