package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"ratedesk/internal/app/commands"
	"ratedesk/internal/app/dto"
	"ratedesk/internal/app/handlers/reference"
)

// Inbox deduplicates redelivered events.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// ReloadHandler reloads reference data whenever a rate-card change event arrives.
type ReloadHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h ReloadHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	id, kind := eventIdentity(msg)
	if id != "" && h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, id)
		if err != nil {
			return fmt.Errorf("kafka: inbox: %w", err)
		}
		if seen {
			return nil
		}
	}
	reason := "event " + msg.Topic
	if kind != "" {
		reason = "event " + kind
	}
	res, err := commands.Dispatch[reference.ReloadReferenceCommand, dto.ReferenceReload](ctx, h.Commands, reference.ReloadReferenceCommand{Reason: reason})
	if err != nil {
		return err
	}
	if h.Logger != nil {
		h.Logger.Info("reference data reloaded from event", "event_id", id, "type", kind, "daily_base_rates", res.Stats.DailyBaseRates)
	}
	return nil
}

// eventIdentity reads the CloudEvents id and type from headers, falling back to the JSON body.
func eventIdentity(msg *sarama.ConsumerMessage) (id, kind string) {
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		switch string(h.Key) {
		case "ce_id":
			id = string(h.Value)
		case "ce_type":
			kind = string(h.Value)
		}
	}
	if id != "" {
		return id, kind
	}
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err == nil {
		id = envelope.ID
		if kind == "" {
			kind = envelope.Type
		}
	}
	return id, kind
}
