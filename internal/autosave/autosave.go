// Package autosave debounces form draft writes: a draft is persisted once
// the form has been quiet for the configured delay.
package autosave

import (
	"context"
	"log"
	"sync"
	"time"
)

const DefaultDelay = time.Second

// SaveFunc persists one snapshot of a form.
type SaveFunc func(ctx context.Context, form string, snapshot map[string]any) error

type pending struct {
	timer    *time.Timer
	snapshot map[string]any
}

// Debouncer keeps one timer per form. Every Touch restarts that form's
// timer with the newest snapshot.
type Debouncer struct {
	mu      sync.Mutex
	idle    *sync.Cond
	delay   time.Duration
	save    SaveFunc
	pending map[string]*pending
	// timer-driven saves currently running, per form
	saving map[string]int
}

func New(delay time.Duration, save SaveFunc) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Debouncer{
		delay:   delay,
		save:    save,
		pending: make(map[string]*pending),
		saving:  make(map[string]int),
	}
	d.idle = sync.NewCond(&d.mu)
	return d
}

// Touch records the latest state of form and schedules a save after the
// debounce delay, replacing any save already scheduled.
func (d *Debouncer) Touch(form string, snapshot map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[form]; ok {
		p.timer.Stop()
	}
	p := &pending{snapshot: snapshot}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(form, p) })
	d.pending[form] = p
}

func (d *Debouncer) fire(form string, p *pending) {
	d.mu.Lock()
	if d.pending[form] != p {
		d.mu.Unlock()
		return
	}
	delete(d.pending, form)
	d.saving[form]++
	d.mu.Unlock()

	if err := d.save(context.Background(), form, p.snapshot); err != nil {
		log.Printf("[autosave] WARN: failed to save draft form=%s: %v", form, err)
	}

	d.mu.Lock()
	if d.saving[form]--; d.saving[form] == 0 {
		delete(d.saving, form)
	}
	d.idle.Broadcast()
	d.mu.Unlock()
}

// Flush saves the pending snapshot for form right away. It reports false
// when nothing was pending.
func (d *Debouncer) Flush(ctx context.Context, form string) (bool, error) {
	d.mu.Lock()
	p, ok := d.pending[form]
	if ok {
		p.timer.Stop()
		delete(d.pending, form)
	}
	d.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, d.save(ctx, form, p.snapshot)
}

// FlushAll saves every pending snapshot and returns the first error.
func (d *Debouncer) FlushAll(ctx context.Context) error {
	d.mu.Lock()
	forms := make(map[string]*pending, len(d.pending))
	for form, p := range d.pending {
		p.timer.Stop()
		forms[form] = p
		delete(d.pending, form)
	}
	d.mu.Unlock()

	var first error
	for form, p := range forms {
		if err := d.save(ctx, form, p.snapshot); err != nil {
			log.Printf("[autosave] WARN: failed to save draft form=%s: %v", form, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Cancel drops the pending save for form without writing it. A save the
// timer already started is waited for, so a write made after Cancel
// returns is never overwritten by an older snapshot.
func (d *Debouncer) Cancel(form string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[form]; ok {
		p.timer.Stop()
		delete(d.pending, form)
	}
	for d.saving[form] > 0 {
		d.idle.Wait()
	}
}

func (d *Debouncer) Pending(form string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[form]
	return ok
}

// Stop cancels every pending save and waits for running ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for form, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, form)
	}
	for len(d.saving) > 0 {
		d.idle.Wait()
	}
}
