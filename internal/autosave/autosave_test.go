package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type saveRecorder struct {
	mu      sync.Mutex
	reasons []Reason
	saved   chan Reason
	err     error
}

func newSaveRecorder() *saveRecorder {
	return &saveRecorder{saved: make(chan Reason, 16)}
}

func (r *saveRecorder) save(_ context.Context, reason Reason) error {
	r.mu.Lock()
	r.reasons = append(r.reasons, reason)
	err := r.err
	r.mu.Unlock()
	r.saved <- reason
	return err
}

func (r *saveRecorder) wait(t *testing.T) Reason {
	t.Helper()
	select {
	case reason := <-r.saved:
		return reason
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for save")
		return ""
	}
}

func TestSchedulerSavesOnTick(t *testing.T) {
	rec := newSaveRecorder()
	ticks := make(chan time.Time)
	stopped := make(chan struct{})
	s := New(rec.save, 30*time.Second, nil)
	s.NewTicker = func(d time.Duration) (<-chan time.Time, func()) {
		if d != 30*time.Second {
			t.Errorf("unexpected interval %s", d)
		}
		return ticks, func() { close(stopped) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	ticks <- time.Now()
	if reason := rec.wait(t); reason != ReasonInterval {
		t.Fatalf("expected interval save, got %s", reason)
	}
	ticks <- time.Now()
	rec.wait(t)

	cancel()
	<-done
	select {
	case <-stopped:
	default:
		t.Fatalf("expected ticker to be stopped")
	}
}

func TestSchedulerSavesOnHide(t *testing.T) {
	rec := newSaveRecorder()
	s := New(rec.save, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Hide()
	if reason := rec.wait(t); reason != ReasonHide {
		t.Fatalf("expected hide save, got %s", reason)
	}
}

func TestHideDoesNotBlockWithoutRunner(t *testing.T) {
	s := New(func(context.Context, Reason) error { return nil }, 0, nil)
	done := make(chan struct{})
	go func() {
		s.Hide()
		s.Hide()
		s.Hide()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("hide blocked")
	}
}

func TestFlushReturnsSaveError(t *testing.T) {
	rec := newSaveRecorder()
	rec.err = errors.New("disk full")
	s := New(rec.save, 0, nil)
	if err := s.Flush(context.Background(), ReasonTeardown); !errors.Is(err, rec.err) {
		t.Fatalf("expected save error, got %v", err)
	}
	if reason := rec.wait(t); reason != ReasonTeardown {
		t.Fatalf("expected teardown save, got %s", reason)
	}
}
