package refdata

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var ErrNotLoaded = errors.New("refdata: reference data not loaded")

// Source yields the snapshot a request should work against.
type Source interface {
	Current() *Snapshot
}

// Require returns the current snapshot or ErrNotLoaded.
func Require(src Source) (*Snapshot, error) {
	if src == nil {
		return nil, ErrNotLoaded
	}
	s := src.Current()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Refresher is implemented by stores that cache their source and must re-read it before a reload.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Holder publishes the current snapshot. Reload swaps in a whole new snapshot;
// readers that already hold the previous one keep using it.
type Holder struct {
	Store  Store
	Logger *slog.Logger
	// OnReload is invoked after each successful swap.
	OnReload func(*Snapshot, Report)

	current atomic.Pointer[Snapshot]
	// reloads are serialized so two concurrent reloads cannot publish out of order.
	mu sync.Mutex
}

func NewHolder(store Store, logger *slog.Logger) *Holder {
	return &Holder{Store: store, Logger: logger}
}

// Current returns the live snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Set publishes an already built snapshot.
func (h *Holder) Set(s *Snapshot) {
	h.current.Store(s)
}

// Reload rebuilds the snapshot from the store. On failure the previous snapshot stays live.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, report, err := h.load(ctx)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("reference data reload failed", "error", err, "kept_previous", h.current.Load() != nil)
		}
		return nil, Report{}, err
	}
	h.current.Store(snap)
	if h.OnReload != nil {
		h.OnReload(snap, report)
	}
	return snap, report, nil
}

func (h *Holder) load(ctx context.Context) (*Snapshot, Report, error) {
	if r, ok := h.Store.(Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			return nil, Report{}, err
		}
	}
	return Load(ctx, h.Store, h.Logger)
}

// Ready reports ErrNotLoaded until a snapshot has been published.
func (h *Holder) Ready() error {
	if h.current.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

var _ Source = (*Holder)(nil)
