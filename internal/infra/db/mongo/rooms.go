package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
)

type RoomRepository struct {
	col *mongo.Collection
}

type roomDocument struct {
	ID               string    `bson:"_id"`
	Name             string    `bson:"name"`
	DefaultUnitCount int       `bson:"default_unit_count"`
	Currency         string    `bson:"currency"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
	Version          int64     `bson:"version"`
}

func (r *RoomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	var doc roomDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("room", string(id))
		}
		return nil, mapError("get room", err)
	}
	return &domainrooms.Room{
		ID:               domainrooms.RoomID(doc.ID),
		Name:             doc.Name,
		DefaultUnitCount: doc.DefaultUnitCount,
		Currency:         doc.Currency,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		Version:          doc.Version,
	}, nil
}

func (r *RoomRepository) Save(ctx context.Context, room *domainrooms.Room) error {
	doc := roomDocument{
		ID:               string(room.ID),
		Name:             room.Name,
		DefaultUnitCount: room.DefaultUnitCount,
		Currency:         room.Currency,
		CreatedAt:        room.CreatedAt,
		UpdatedAt:        room.UpdatedAt,
		Version:          room.Version + 1,
	}
	if room.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainrooms.ErrRoomExists
			}
			return mapError("insert room", err)
		}
		room.Version = 1
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": room.Version}, doc)
	if err != nil {
		return mapError("update room", err)
	}
	if res.MatchedCount == 0 {
		return apperr.Conflict("save room", nil)
	}
	room.Version++
	return nil
}

var _ domainrooms.Repository = (*RoomRepository)(nil)
