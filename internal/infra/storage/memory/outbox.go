package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "ratedesk/internal/app/outbox"
)

type outboxState string

const (
	stateNew     outboxState = "NEW"
	stateClaimed outboxState = "CLAIMED"
	stateFailed  outboxState = "FAILED"
)

// DefaultOutboxLimit bounds the memory outbox when no limit is set.
const DefaultOutboxLimit = 10000

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       outboxState
	attempts    int
	nextAttempt time.Time
	claimedBy   string
	lastError   string
	seq         int
}

// Outbox keeps unsent events in memory with the same claim lifecycle as the Mongo store.
// Sent records are removed. Once Limit records are held, Add evicts the oldest unclaimed one.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*outboxEntry
	seq     int
	dropped int

	Limit int
	// OnDrop is called, outside the lock, for every record evicted by Add.
	OnDrop func(appoutbox.EventRecord)
	Now    func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{entries: map[string]*outboxEntry{}}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	if o.entries == nil {
		o.entries = map[string]*outboxEntry{}
	}
	var evicted *appoutbox.EventRecord
	if _, replace := o.entries[record.ID]; !replace && len(o.entries) >= o.limit() {
		if victim := o.oldest(func(e *outboxEntry) bool { return e.state != stateClaimed }); victim != nil {
			delete(o.entries, victim.record.ID)
			o.dropped++
			evicted = &victim.record
		}
	}
	o.seq++
	o.entries[record.ID] = &outboxEntry{record: record, state: stateNew, nextAttempt: o.now(), seq: o.seq}
	o.mu.Unlock()

	if evicted != nil && o.OnDrop != nil {
		o.OnDrop(*evicted)
	}
	return nil
}

// Claim leases the oldest due record to workerID.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Claimed, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	e := o.oldest(func(e *outboxEntry) bool {
		return e.state != stateClaimed && !e.nextAttempt.After(now)
	})
	if e == nil {
		return nil, nil
	}
	e.state = stateClaimed
	e.claimedBy = workerID
	return &appoutbox.Claimed{EventRecord: e.record, Attempts: e.attempts}, nil
}

// MarkSent removes the record.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.entries[id]; !ok {
		return appoutbox.ErrNotFound
	}
	delete(o.entries, id)
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[id]
	if !ok {
		return appoutbox.ErrNotFound
	}
	e.state = stateFailed
	e.attempts++
	e.nextAttempt = next
	e.lastError = errMsg
	return nil
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Dropped counts records evicted because the outbox was full.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Records returns every unsent record in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := make([]*outboxEntry, 0, len(o.entries))
	for _, e := range o.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]appoutbox.EventRecord, 0, len(list))
	for _, e := range list {
		out = append(out, e.record)
	}
	return out
}

// oldest returns the earliest added entry matching keep. Callers hold the lock.
func (o *Outbox) oldest(keep func(*outboxEntry) bool) *outboxEntry {
	var best *outboxEntry
	for _, e := range o.entries {
		if keep(e) && (best == nil || e.seq < best.seq) {
			best = e
		}
	}
	return best
}

func (o *Outbox) limit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultOutboxLimit
}

func (o *Outbox) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
