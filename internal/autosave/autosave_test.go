package autosave

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	saves []map[string]any
	done  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 10)}
}

func (r *recorder) save(_ context.Context, _ string, snapshot map[string]any) error {
	r.mu.Lock()
	r.saves = append(r.saves, snapshot)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func TestTouchCoalescesIntoOneSave(t *testing.T) {
	rec := newRecorder()
	d := New(30*time.Millisecond, rec.save)

	d.Touch("order", map[string]any{"customer": "B"})
	d.Touch("order", map[string]any{"customer": "Bu"})
	d.Touch("order", map[string]any{"customer": "Budi"})

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatalf("debounced save never fired")
	}
	time.Sleep(60 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected one save, got %d", got)
	}
	if rec.saves[0]["customer"] != "Budi" {
		t.Fatalf("expected newest snapshot, got %+v", rec.saves[0])
	}
}

func TestFlushSavesImmediately(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.save)

	d.Touch("product", map[string]any{"name": "Es Teh"})
	flushed, err := d.Flush(context.Background(), "product")
	if err != nil || !flushed {
		t.Fatalf("expected flush to save, got %v %v", flushed, err)
	}
	if rec.count() != 1 || d.Pending("product") {
		t.Fatalf("expected one save and nothing pending")
	}

	flushed, _ = d.Flush(context.Background(), "product")
	if flushed {
		t.Fatalf("expected nothing left to flush")
	}
}

func TestCancelDropsPendingSave(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.save)

	d.Touch("return", map[string]any{"quantity": 1})
	d.Cancel("return")
	time.Sleep(60 * time.Millisecond)

	if rec.count() != 0 {
		t.Fatalf("expected cancelled draft not to be saved")
	}
}

func TestFlushAllWritesEveryPendingForm(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.save)

	d.Touch("order", map[string]any{"customer": "Ali"})
	d.Touch("product", map[string]any{"name": "Es Jeruk"})
	if err := d.FlushAll(context.Background()); err != nil {
		t.Fatalf("flush all: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("expected two saves, got %d", rec.count())
	}
	if d.Pending("order") || d.Pending("product") {
		t.Fatalf("expected nothing pending after flush all")
	}
}

func TestCancelWaitsForRunningSave(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	saved := false
	d := New(5*time.Millisecond, func(context.Context, string, map[string]any) error {
		close(started)
		<-release
		mu.Lock()
		saved = true
		mu.Unlock()
		return nil
	})

	d.Touch("order", map[string]any{"customer": "Budi"})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("debounced save never started")
	}

	cancelled := make(chan struct{})
	go func() {
		d.Cancel("order")
		close(cancelled)
	}()

	select {
	case <-cancelled:
		t.Fatalf("cancel returned while a save was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatalf("cancel never returned")
	}
	mu.Lock()
	defer mu.Unlock()
	if !saved {
		t.Fatalf("expected running save to finish before cancel returned")
	}
}
