// Package policies declares the outbound ports handlers depend on.
package policies

import (
	"context"
	"io"

	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	domainrange "roomledger/internal/domain/shared/daterange"
)

// PricingPort prices a whole stay. pricing.StayCalculator is the default.
type PricingPort interface {
	Quote(ctx context.Context, roomID domainrooms.RoomID, dr domainrange.DateRange) (domainpricing.Quote, error)
}

// RateSheet is a rendered calendar export ready for upload.
type RateSheet struct {
	Key         string
	ContentType string
	Size        int64
	Body        io.Reader
}

// RateSheetPublisher stores a rate sheet and returns a URL it can be fetched from.
type RateSheetPublisher interface {
	Publish(ctx context.Context, sheet RateSheet) (string, error)
}
