package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomledger/internal/domain/shared/events"
)

// EventRecord is a domain event serialized for the outbox table/collection.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Stream is the aggregate family of the event, the part of Name before the first dot.
// "reservation.confirmed" belongs to the "reservation" stream.
func (r EventRecord) Stream() string {
	if i := strings.IndexByte(r.Name, '.'); i > 0 {
		return r.Name[:i]
	}
	return r.Name
}

// Outbox accepts records inside the caller's unit of work. Flush signals that the
// surrounding transaction committed and records may be published.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder stores the event struct as its JSON payload. NewID defaults
// to random UUIDs; the id becomes the CloudEvents id and the inbox key.
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	name := ev.EventName()
	if name == "" {
		return EventRecord{}, fmt.Errorf("outbox: %T has no event name", ev)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("outbox: encode %s: %w", name, err)
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       name,
		Aggregate:  ev.AggregateID(),
		OccurredAt: ev.OccurredAt().UTC(),
		Payload:    payload,
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

// RecordDomainEvents adds evs to box in order, inside the unit bound to ctx.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err == nil {
			err = box.Add(ctx, rec)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Recorder is an aggregate holding events not yet written to the outbox.
type Recorder interface {
	Drain() []events.DomainEvent
}

// Drain moves the pending events of each aggregate into box, aggregates in
// argument order.
func Drain(ctx context.Context, box Outbox, encoder EventEncoder, aggregates ...Recorder) error {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		if err := RecordDomainEvents(ctx, box, encoder, agg.Drain()); err != nil {
			return err
		}
	}
	return nil
}
