package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainreservation "roomledger/internal/domain/reservation"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
	"roomledger/internal/domain/shared/money"
)

type HoldRepository struct {
	col *mongo.Collection
}

type holdDocument struct {
	ID             string    `bson:"_id"`
	RoomID         string    `bson:"room_id"`
	CheckIn        string    `bson:"check_in"`
	CheckOut       string    `bson:"check_out"`
	Units          int       `bson:"units"`
	Status         string    `bson:"status"`
	QuotedAmount   string    `bson:"quoted_amount"`
	QuotedCurrency string    `bson:"quoted_currency"`
	GuestRef       string    `bson:"guest_ref,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
	Version        int64     `bson:"version"`
}

func (r *HoldRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "status", Value: 1}},
	})
	return err
}

func (r *HoldRepository) ByID(ctx context.Context, id domainreservation.HoldID) (*domainreservation.Hold, error) {
	var doc holdDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("hold", string(id))
		}
		return nil, mapError("get hold", err)
	}
	return doc.toDomain()
}

func (r *HoldRepository) Save(ctx context.Context, h *domainreservation.Hold) error {
	if h.Version == 0 {
		doc := newHoldDocument(h)
		doc.Version = 1
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperr.Conflict("save hold", err)
			}
			return mapError("insert hold", err)
		}
		h.Version = 1
		return nil
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(h.ID), "version": h.Version},
		bson.M{
			"$set": bson.M{"status": string(h.Status), "updated_at": h.UpdatedAt},
			"$inc": bson.M{"version": 1},
		},
		options.Update(),
	)
	if err != nil {
		return mapError("update hold", err)
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("save hold", nil)
	}
	h.Version++
	return nil
}

func newHoldDocument(h *domainreservation.Hold) holdDocument {
	return holdDocument{
		ID:             string(h.ID),
		RoomID:         string(h.RoomID),
		CheckIn:        daterange.Key(h.Range.CheckIn),
		CheckOut:       daterange.Key(h.Range.CheckOut),
		Units:          h.Units,
		Status:         string(h.Status),
		QuotedAmount:   h.QuotedTotal.Amount.String(),
		QuotedCurrency: h.QuotedTotal.Currency,
		GuestRef:       h.GuestRef,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
		Version:        h.Version,
	}
}

func (d holdDocument) toDomain() (*domainreservation.Hold, error) {
	checkIn, err := daterange.Parse(d.CheckIn)
	if err != nil {
		return nil, err
	}
	checkOut, err := daterange.Parse(d.CheckOut)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(d.QuotedAmount)
	if err != nil {
		return nil, err
	}
	return &domainreservation.Hold{
		ID:          domainreservation.HoldID(d.ID),
		RoomID:      domainrooms.RoomID(d.RoomID),
		Range:       daterange.DateRange{CheckIn: checkIn, CheckOut: checkOut},
		Units:       d.Units,
		Status:      domainreservation.Status(d.Status),
		QuotedTotal: money.Money{Amount: amount, Currency: d.QuotedCurrency},
		GuestRef:    d.GuestRef,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Version:     d.Version,
	}, nil
}

var _ domainreservation.Repository = (*HoldRepository)(nil)
