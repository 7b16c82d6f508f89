package sequence

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrSuperseded = errors.New("sequence: superseded by a newer request")

const DefaultTTL = 30 * time.Minute

// Ticket identifies one request in its client's sequence. The zero Ticket is never superseded.
type Ticket struct {
	key string
	seq uint64
}

type entry struct {
	latest  uint64
	touched time.Time
}

// Tracker implements latest-wins ordering per client key: once a newer request for the
// same key has started, older ones report ErrSuperseded when they finish.
type Tracker struct {
	TTL time.Duration
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{TTL: ttl}
}

// Begin issues the next ticket for key. An empty key is not sequenced.
func (t *Tracker) Begin(key string) Ticket {
	key = strings.TrimSpace(key)
	if key == "" {
		return Ticket{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = map[string]*entry{}
	}
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	e.latest++
	e.touched = t.now()
	return Ticket{key: key, seq: e.latest}
}

// Finish returns ErrSuperseded when a newer ticket exists for the same key.
func (t *Tracker) Finish(tk Ticket) error {
	if tk.key == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[tk.key]
	if !ok {
		// swept while in flight; nothing newer was issued after the sweep
		return nil
	}
	e.touched = t.now()
	if e.latest != tk.seq {
		return ErrSuperseded
	}
	return nil
}

// Sweep drops keys idle for longer than the TTL and reports how many were removed.
func (t *Tracker) Sweep() int {
	cutoff := t.now().Add(-t.ttl())
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, e := range t.entries {
		if e.touched.Before(cutoff) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Run sweeps periodically until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	interval := t.ttl() / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.Sweep()
		}
	}
}

func (t *Tracker) ttl() time.Duration {
	if t.TTL <= 0 {
		return DefaultTTL
	}
	return t.TTL
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
