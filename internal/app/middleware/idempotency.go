package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"roomledger/internal/app/commands"
)

// IdempotentCommand is implemented by commands that accept an Idempotency-Key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer to the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Command    string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	// ErrIdempotencyKeyReused is returned when a key is replayed for a different command.
	ErrIdempotencyKeyReused = errors.New("middleware: idempotency key reused for another command")
)

// Idempotency replays the stored result of a previously successful command with the
// same key. Failed attempts are not remembered, so a client may retry them.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	g := idempotencyGuard{store: store, codec: codec, now: time.Now}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			if res, replayed, err := g.replay(ctx, idCmd); replayed || err != nil {
				return res, err
			}
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := g.remember(ctx, idCmd, res); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}

type idempotencyGuard struct {
	store IdempotencyStore
	codec ResultCodec
	now   func() time.Time
}

// replay returns the stored result for cmd's key, if one exists.
func (g idempotencyGuard) replay(ctx context.Context, cmd IdempotentCommand) (any, bool, error) {
	rec, found, err := g.store.Get(ctx, cmd.IdempotencyKey())
	if err != nil || !found {
		return nil, false, err
	}
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, false, ErrIdempotencyKeyReused
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, false, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := g.codec.Decode(rec.Payload, proto); err != nil {
			return nil, false, err
		}
	}
	// Handlers return values; the prototype is a pointer to one.
	return reflect.Indirect(reflect.ValueOf(proto)).Interface(), true, nil
}

func (g idempotencyGuard) remember(ctx context.Context, cmd IdempotentCommand, res any) error {
	rec := IdempotencyRecord{
		Key:        cmd.IdempotencyKey(),
		Command:    cmd.Key(),
		OccurredAt: g.now().UTC(),
	}
	if res != nil {
		payload, err := g.codec.Encode(res)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return g.store.Save(ctx, rec)
}
