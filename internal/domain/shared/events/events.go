package events

import (
	"slices"
	"time"
)

// DomainEvent is a fact about a room, its calendar or a hold. AggregateID is
// the room or hold id, and becomes the Kafka partition key downstream.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by the aggregates. Events stay pending until the
// handler drains them into the outbox within the same unit of work.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	return slices.Clone(r.pending)
}

func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
