package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "roomledger/internal/app/outbox"
	"roomledger/internal/infra/outbox"
	"roomledger/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type recordingProducer struct {
	mu       sync.Mutex
	failures int
	sent     []published
	done     func()
	want     int
}

func (p *recordingProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	if len(p.sent) == p.want {
		p.done()
	}
	return nil
}

func runWorker(t *testing.T, store *memory.Outbox, producer *recordingProducer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	producer.done = cancel
	w := &outbox.Worker{
		Store:       store,
		Producer:    producer,
		Interval:    5 * time.Millisecond,
		TopicPrefix: "test.",
		Source:      "app://roomledger-test",
		Backoff:     []time.Duration{time.Millisecond},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled, "worker timed out before publishing everything")
}

func TestWorkerPublishesCloudEvents(t *testing.T) {
	store := memory.NewOutbox(nil)
	require.NoError(t, store.Add(context.Background(), appoutbox.EventRecord{
		ID: "ev-1", Name: "reservation.confirmed", Aggregate: "h1",
		Payload: []byte(`{"HoldID":"h1"}`), OccurredAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Headers: map[string]string{"traceparent": "00-abc-def-01"},
	}))

	producer := &recordingProducer{want: 1}
	runWorker(t, store, producer)

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "test.reservation.events.v1", msg.topic)
	assert.Equal(t, "h1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "ev-1", msg.headers["ce-id"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "reservation.confirmed.v1", evt["type"])
	assert.Equal(t, "app://roomledger-test", evt["source"])
	assert.Equal(t, "00-abc-def-01", evt["traceparent"])
	assert.Equal(t, map[string]any{"HoldID": "h1"}, evt["data"])
	assert.Empty(t, store.Records())
}

func TestWorkerRetriesFailedPublishes(t *testing.T) {
	store := memory.NewOutbox(nil)
	for _, id := range []string{"ev-1", "ev-2"} {
		require.NoError(t, store.Add(context.Background(), appoutbox.EventRecord{
			ID: id, Name: "inventory.quota_reserved", Aggregate: "r1", Payload: []byte(`{}`), OccurredAt: time.Now(),
		}))
	}

	producer := &recordingProducer{want: 2, failures: 2}
	runWorker(t, store, producer)

	require.Len(t, producer.sent, 2)
	assert.Empty(t, store.Records())
}

func TestWorkerRequiresDependencies(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "rl.rooms.events.v1", outbox.TopicFor("rl.", "rooms.created"))
	assert.Equal(t, "plain.events.v1", outbox.TopicFor("", "plain"))
}

func TestNotifierNeverBlocks(t *testing.T) {
	n := outbox.NewNotifier()
	n.Notify()
	n.Notify()
	assert.Len(t, n, 1)

	var nilNotifier outbox.Notifier
	nilNotifier.Notify()
}
