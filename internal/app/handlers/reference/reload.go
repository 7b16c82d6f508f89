package reference

import (
	"context"
	"errors"

	"ratedesk/internal/app/commands"
	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/outbox"
	"ratedesk/internal/app/refdata"
)

const reloadKey = "reference.reload"

var ErrReloaderMissing = errors.New("reference: reloader not configured")

// ReloadReferenceCommand rebuilds the reference snapshot from the store.
type ReloadReferenceCommand struct {
	Reason string `validate:"max=200"`
}

func (ReloadReferenceCommand) Key() string { return reloadKey }

type Reloader interface {
	Reload(ctx context.Context) (*refdata.Snapshot, refdata.Report, error)
}

// ReloadObserver is told the outcome of every reload.
type ReloadObserver interface {
	CountReload(err error)
}

type ReloadHandler struct {
	Reloader Reloader
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Observer ReloadObserver
}

func (h *ReloadHandler) Handle(ctx context.Context, cmd ReloadReferenceCommand) (dto.ReferenceReload, error) {
	if h.Reloader == nil {
		return dto.ReferenceReload{}, ErrReloaderMissing
	}
	snap, report, err := h.Reloader.Reload(ctx)
	if h.Observer != nil {
		h.Observer.CountReload(err)
	}
	if err != nil {
		return dto.ReferenceReload{}, err
	}
	ev := refdata.NewReferenceReloaded(cmd.Reason, snap, report)
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, ev); err != nil {
		return dto.ReferenceReload{}, err
	}
	return dto.MapReload(snap, report), nil
}

var _ commands.Handler[ReloadReferenceCommand, dto.ReferenceReload] = (*ReloadHandler)(nil)
