package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	reservationsapp "roomledger/internal/app/handlers/reservations"
	"roomledger/internal/app/middleware"
	domainreservation "roomledger/internal/domain/reservation"
	"roomledger/internal/domain/shared/apperr"
)

// CheckedOutType is the CloudEvents type the front desk emits when a guest leaves.
const CheckedOutType = "stay.checked_out"

// Inbox de-duplicates consumed events. Forget undoes Seen so a failed event is retried.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type checkedOutData struct {
	HoldID string `json:"hold_id"`
}

// CheckoutHandler completes holds when the front desk reports a checkout.
type CheckoutHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *CheckoutHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt cloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrPoisonMessage, err)
	}
	if !strings.HasPrefix(evt.Type, CheckedOutType) {
		return nil
	}
	var data checkedOutData
	if err := json.Unmarshal(evt.Data, &data); err != nil || evt.ID == "" || data.HoldID == "" {
		return fmt.Errorf("%w: checkout event without id or hold_id", ErrPoisonMessage)
	}

	seen, err := h.Inbox.Seen(ctx, evt.ID)
	if err != nil {
		return err
	}
	if seen {
		h.logger().Debug("duplicate checkout event", "event_id", evt.ID)
		return nil
	}

	adminCtx := middleware.WithAdmin(ctx, "frontdesk")
	_, err = commands.Dispatch[reservationsapp.CompleteHoldCommand, dto.Hold](adminCtx, h.Commands, reservationsapp.CompleteHoldCommand{
		HoldID:          data.HoldID,
		IdempotencyKeyV: "frontdesk:" + evt.ID,
	})
	switch {
	case err == nil:
		h.logger().Info("stay completed", "hold_id", data.HoldID, "event_id", evt.ID)
		return nil
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, domainreservation.ErrInvalidTransition):
		h.logger().Warn("checkout ignored", "hold_id", data.HoldID, "event_id", evt.ID, "error", err)
		return nil
	default:
		if ferr := h.Inbox.Forget(context.WithoutCancel(ctx), evt.ID); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
}

func (h *CheckoutHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*CheckoutHandler)(nil)
