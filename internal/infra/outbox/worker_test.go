package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "ratedesk/internal/app/outbox"
	"ratedesk/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	err  error
	sent []published
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

type publishCounts struct{ sent, failed int }

func (c *publishCounts) CountPublished(err error) {
	if err != nil {
		c.failed++
		return
	}
	c.sent++
}

func quoted(id string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       "rates.quoted",
		Payload:    []byte(`{"quote_id":"` + id + `","final_rate":"121"}`),
		OccurredAt: time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC),
		Aggregate:  "booking",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(t.Context(), quoted("q-1")))
	require.NoError(t, box.Add(t.Context(), quoted("q-2")))

	producer := &fakeProducer{}
	counts := &publishCounts{}
	w := &Worker{Queue: box, Producer: producer, TopicPrefix: "hotel.", Source: "app://test", Observer: counts}

	require.NoError(t, w.Drain(t.Context()))
	assert.Zero(t, box.Pending())
	assert.Equal(t, 2, counts.sent)
	require.Len(t, producer.sent, 2)

	msg := producer.sent[0]
	assert.Equal(t, "hotel.rates.events.v1", msg.topic)
	assert.Equal(t, "booking", msg.key)
	assert.Equal(t, "q-1", msg.headers["ce_id"])
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", msg.headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "q-1", evt["id"])
	assert.Equal(t, "rates.quoted.v1", evt["type"])
	assert.Equal(t, "app://test", evt["source"])
	assert.Equal(t, "booking", evt["subject"])
	assert.Equal(t, "00-abc-def-01", evt["traceparent"])
	data, ok := evt["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "121", data["final_rate"])
}

func TestWorkerPublishFailureSchedulesRetry(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(t.Context(), quoted("q-1")))

	counts := &publishCounts{}
	w := &Worker{
		Queue:    box,
		Producer: &fakeProducer{err: errors.New("broker unavailable")},
		Backoff:  []time.Duration{time.Hour},
		Observer: counts,
	}

	require.NoError(t, w.Drain(t.Context()))
	assert.Equal(t, 1, box.Pending())
	assert.Equal(t, 1, counts.failed)

	next, err := box.Claim(t.Context(), "other")
	require.NoError(t, err)
	assert.Nil(t, next, "record is not due until the backoff passes")
}

func TestWorkerBadPayloadIsMarkedFailed(t *testing.T) {
	box := memory.NewOutbox()
	rec := quoted("q-1")
	rec.Payload = []byte("not json")
	require.NoError(t, box.Add(t.Context(), rec))

	producer := &fakeProducer{}
	w := &Worker{Queue: box, Producer: producer}
	require.NoError(t, w.Drain(t.Context()))
	assert.Empty(t, producer.sent)
	assert.Equal(t, 1, box.Pending())
}

func TestWorkerTopicFor(t *testing.T) {
	cases := []struct {
		prefix, name, want string
	}{
		{"", "rates.quoted", "rates.events.v1"},
		{"dev.", "reference.reloaded", "dev.reference.events.v1"},
		{"", "plain", "plain.events.v1"},
	}
	for _, tc := range cases {
		w := &Worker{TopicPrefix: tc.prefix}
		assert.Equal(t, tc.want, w.topicFor(tc.name), tc.name)
	}
}

func TestWorkerNextRetryUsesLastBackoff(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}
	before := time.Now()
	assert.WithinDuration(t, before.Add(time.Second), w.nextRetry(0), time.Second)
	assert.WithinDuration(t, before.Add(time.Minute), w.nextRetry(7), time.Second)
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	assert.ErrorIs(t, w.Run(t.Context()), ErrWorkerNotConfigured)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	box := memory.NewOutbox()
	require.NoError(t, box.Add(ctx, quoted("q-1")))
	w := &Worker{Queue: box, Producer: &fakeProducer{}, Interval: 5 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return box.Pending() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
