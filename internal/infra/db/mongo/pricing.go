package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpricing "roomledger/internal/domain/pricing"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

// ProfileStore keeps one pricing_profiles document per room and one
// pricing_overrides document per (room, night). Prices are stored as decimal strings.
type ProfileStore struct {
	profiles  *mongo.Collection
	overrides *mongo.Collection
}

type profileDocument struct {
	RoomID      string    `bson:"_id"`
	Currency    string    `bson:"currency"`
	BaseNightly string    `bson:"base_nightly"`
	Weekday     []*string `bson:"weekday_prices"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Version     int64     `bson:"version"`
}

type overrideDocument struct {
	ID     string `bson:"_id"`
	RoomID string `bson:"room_id"`
	Day    string `bson:"day"`
	Price  string `bson:"price"`
}

func (s *ProfileStore) ensureIndexes(ctx context.Context) error {
	_, err := s.overrides.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *ProfileStore) Profile(ctx context.Context, roomID domainrooms.RoomID) (*domainpricing.RoomPricingProfile, error) {
	var doc profileDocument
	if err := s.profiles.FindOne(ctx, bson.M{"_id": string(roomID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("pricing profile", string(roomID))
		}
		return nil, mapError("get pricing profile", err)
	}
	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}

	cur, err := s.overrides.Find(ctx, bson.M{"room_id": string(roomID)})
	if err != nil {
		return nil, mapError("list pricing overrides", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var o overrideDocument
		if err := cur.Decode(&o); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, err
		}
		p.DateOverrides[o.Day] = v
	}
	if err := cur.Err(); err != nil {
		return nil, mapError("list pricing overrides", err)
	}
	return p, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile *domainpricing.RoomPricingProfile) error {
	doc := newProfileDocument(profile)
	doc.Version = profile.Version + 1
	if profile.Version == 0 {
		if _, err := s.profiles.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return apperr.Conflict("save pricing profile", err)
			}
			return mapError("insert pricing profile", err)
		}
		profile.Version = 1
		return nil
	}
	res, err := s.profiles.ReplaceOne(ctx, bson.M{"_id": doc.RoomID, "version": profile.Version}, doc)
	if err != nil {
		return mapError("update pricing profile", err)
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("save pricing profile", nil)
	}
	profile.Version++
	return nil
}

func (s *ProfileStore) UpsertDateOverrides(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, price decimal.Decimal) error {
	if err := domainpricing.ValidatePrice("price", price); err != nil {
		return err
	}
	if len(days) == 0 {
		return nil
	}
	n, err := s.profiles.CountDocuments(ctx, bson.M{"_id": string(roomID)}, options.Count().SetLimit(1))
	if err != nil {
		return mapError("check pricing profile", err)
	}
	if n == 0 {
		return apperr.NotFound("pricing profile", string(roomID))
	}
	models := make([]mongo.WriteModel, 0, len(days))
	for _, d := range days {
		key := daterange.Key(d)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": entryID(roomID, key)}).
			SetUpdate(bson.M{"$set": overrideDocument{ID: entryID(roomID, key), RoomID: string(roomID), Day: key, Price: price.String()}}).
			SetUpsert(true))
	}
	_, err = s.overrides.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return mapError("upsert pricing overrides", err)
}

func newProfileDocument(p *domainpricing.RoomPricingProfile) profileDocument {
	weekday := make([]*string, len(p.Weekday))
	for i, v := range p.Weekday {
		if v != nil {
			str := v.String()
			weekday[i] = &str
		}
	}
	return profileDocument{
		RoomID:      string(p.RoomID),
		Currency:    p.Currency,
		BaseNightly: p.BaseNightly.String(),
		Weekday:     weekday,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

func (d profileDocument) toDomain() (*domainpricing.RoomPricingProfile, error) {
	base, err := decimal.NewFromString(d.BaseNightly)
	if err != nil {
		return nil, err
	}
	p := &domainpricing.RoomPricingProfile{
		RoomID:        domainrooms.RoomID(d.RoomID),
		Currency:      d.Currency,
		BaseNightly:   base,
		DateOverrides: make(map[string]decimal.Decimal),
		UpdatedAt:     d.UpdatedAt,
		Version:       d.Version,
	}
	for i, raw := range d.Weekday {
		if i >= len(p.Weekday) || raw == nil {
			continue
		}
		v, err := decimal.NewFromString(*raw)
		if err != nil {
			return nil, err
		}
		p.Weekday[i] = &v
	}
	return p, nil
}

// entryID is the _id of per-night documents.
func entryID(roomID domainrooms.RoomID, day string) string {
	return string(roomID) + "|" + day
}

var _ domainpricing.ProfileStore = (*ProfileStore)(nil)
