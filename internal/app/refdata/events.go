package refdata

import "ratedesk/internal/domain/shared/events"

const EventReferenceReloaded = "reference.reloaded"

type ReferenceReloaded struct {
	events.BaseEvent `json:"-"`

	Reason           string         `json:"reason,omitempty"`
	Stats            Stats          `json:"stats"`
	Skipped          map[string]int `json:"skipped,omitempty"`
	MissingPlanLinks int            `json:"missing_plan_links"`
}

func NewReferenceReloaded(reason string, s *Snapshot, r Report) ReferenceReloaded {
	stats := s.Stats()
	return ReferenceReloaded{
		BaseEvent:        events.NewBase(EventReferenceReloaded, "reference", stats.LoadedAt),
		Reason:           reason,
		Stats:            stats,
		Skipped:          r.Skipped,
		MissingPlanLinks: r.MissingPlanLinks,
	}
}

var _ events.DomainEvent = ReferenceReloaded{}
