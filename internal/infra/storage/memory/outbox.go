package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "roomledger/internal/app/outbox"
	infraoutbox "roomledger/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	nextTry   time.Time
	lastError string
}

// Outbox keeps records in insertion order and serves them to the publishing worker.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	notify  infraoutbox.Notifier
}

func NewOutbox(notify infraoutbox.Notifier) *Outbox {
	return &Outbox{notify: notify}
}

// SetNotifier attaches the worker's wake channel.
func (o *Outbox) SetNotifier(n infraoutbox.Notifier) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notify = n
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	entry := &outboxEntry{record: record, state: stateNew, nextTry: time.Now().UTC()}
	o.entries = append(o.entries, entry)
	enlist(ctx, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, e := range o.entries {
			if e == entry {
				o.entries = append(o.entries[:i], o.entries[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	o.mu.Lock()
	n := o.notify
	o.mu.Unlock()
	n.Notify()
	return nil
}

// Records returns the event records not yet sent, oldest first.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		if e.state != stateSent {
			out = append(out, e.record)
		}
	}
	return out
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, e := range o.entries {
		if (e.state == stateNew || e.state == stateFailed) && !e.nextTry.After(now) {
			e.state = stateClaimed
			return &infraoutbox.Message{
				ID:         e.record.ID,
				Name:       e.record.Name,
				Payload:    e.record.Payload,
				OccurredAt: e.record.OccurredAt,
				Aggregate:  e.record.Aggregate,
				Headers:    e.record.Headers,
				Attempts:   e.attempts,
			}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.record.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = stateFailed
			e.attempts++
			e.nextTry = next
			e.lastError = errMsg
			return nil
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox       = (*Outbox)(nil)
	_ infraoutbox.ClaimStore = (*Outbox)(nil)
)
