package events

import "time"

// DomainEvent is what the outbox encoder needs to route and key an event.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// BaseEvent carries the routing fields. Embed it tagged `json:"-"` so only the payload is encoded.
type BaseEvent struct {
	Name      string
	Aggregate string
	Time      time.Time
}

// NewBase stamps an event in UTC so payloads never carry the server's local zone.
func NewBase(name, aggregate string, at time.Time) BaseEvent {
	return BaseEvent{Name: name, Aggregate: aggregate, Time: at.UTC()}
}

func (e BaseEvent) EventName() string     { return e.Name }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) OccurredAt() time.Time { return e.Time }
