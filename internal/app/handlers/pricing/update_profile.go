package pricing

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"roomledger/internal/app/commands"
	"roomledger/internal/app/dto"
	handlersupport "roomledger/internal/app/handlers/support"
	"roomledger/internal/app/outbox"
	"roomledger/internal/app/uow"
	"roomledger/internal/clock"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
)

const UpdateProfileKey = "pricing.update_profile"

// UpdateProfileCommand changes the base price and weekday layer of a room.
// A weekday mapped to nil clears that weekday's price. Currency never changes.
type UpdateProfileCommand struct {
	RoomID           string             `json:"room_id" validate:"required"`
	BaseNightlyPrice *string            `json:"base_nightly_price"`
	WeekdayPrices    map[string]*string `json:"weekday_prices"`
}

func (c UpdateProfileCommand) Key() string     { return UpdateProfileKey }
func (c UpdateProfileCommand) AdminOnly() bool { return true }

type UpdateProfileHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (dto.PricingProfile, error) {
	if cmd.BaseNightlyPrice == nil && len(cmd.WeekdayPrices) == 0 {
		return dto.PricingProfile{}, apperr.Validation("", "base_nightly_price or weekday_prices is required")
	}
	unit, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.PricingProfile{}, err
	}
	defer unit.Close()
	ctx = unit.Ctx

	profile, err := unit.Pricing().Profile(ctx, domainrooms.RoomID(cmd.RoomID))
	if err != nil {
		return dto.PricingProfile{}, err
	}
	now := h.Clock.Now()
	if cmd.BaseNightlyPrice != nil {
		base, err := parsePrice("base_nightly_price", *cmd.BaseNightlyPrice)
		if err != nil {
			return dto.PricingProfile{}, err
		}
		if err := profile.SetBase(base, now); err != nil {
			return dto.PricingProfile{}, err
		}
	}
	days := make([]string, 0, len(cmd.WeekdayPrices))
	for day := range cmd.WeekdayPrices {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, raw := range days {
		idx, ok := dto.ParseWeekday(strings.ToLower(strings.TrimSpace(raw)))
		if !ok {
			return dto.PricingProfile{}, apperr.Validation("weekday_prices", "unknown weekday "+raw)
		}
		var price *decimal.Decimal
		if v := cmd.WeekdayPrices[raw]; v != nil {
			p, err := parsePrice("weekday_prices", *v)
			if err != nil {
				return dto.PricingProfile{}, err
			}
			price = &p
		}
		if err := profile.SetWeekdayPrice(time.Weekday(idx), price, now); err != nil {
			return dto.PricingProfile{}, err
		}
	}
	profile.MarkUpdated(now)
	if err := unit.Pricing().SaveProfile(ctx, profile); err != nil {
		return dto.PricingProfile{}, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, profile); err != nil {
		return dto.PricingProfile{}, err
	}
	if err := unit.Commit(); err != nil {
		return dto.PricingProfile{}, err
	}
	return dto.MapProfile(profile), nil
}

func parsePrice(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, apperr.Validation(field, "must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Decimal{}, apperr.Validation(field, "price must be non-negative")
	}
	return d, nil
}

var _ commands.Handler[UpdateProfileCommand, dto.PricingProfile] = (*UpdateProfileHandler)(nil)
