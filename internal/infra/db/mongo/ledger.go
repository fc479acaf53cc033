package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaininventory "roomledger/internal/domain/inventory"
	domainrooms "roomledger/internal/domain/rooms"
	"roomledger/internal/domain/shared/apperr"
	"roomledger/internal/domain/shared/daterange"
)

// Ledger keeps one room_calendars document per room and one quota_entries
// document per explicit night. A mutation bumps the calendar version first,
// which makes a concurrent transaction on the same room fail with a write conflict.
type Ledger struct {
	db        *mongo.Database
	calendars *mongo.Collection
	entries   *mongo.Collection
}

type calendarDocument struct {
	RoomID           string `bson:"_id"`
	DefaultUnitCount int    `bson:"default_unit_count"`
	Version          int64  `bson:"version"`
}

type quotaEntryDocument struct {
	ID     string `bson:"_id"`
	RoomID string `bson:"room_id"`
	Day    string `bson:"day"`
	Units  int    `bson:"units"`
}

func (l *Ledger) ensureIndexes(ctx context.Context) error {
	_, err := l.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (l *Ledger) Create(ctx context.Context, calendar *domaininventory.QuotaCalendar) error {
	return inSession(ctx, l.db, func(ctx context.Context) error {
		doc := calendarDocument{RoomID: string(calendar.RoomID), DefaultUnitCount: calendar.DefaultUnitCount, Version: 1}
		if _, err := l.calendars.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainrooms.ErrRoomExists
			}
			return mapError("create calendar", err)
		}
		calendar.Version = 1
		if len(calendar.PerDate) == 0 {
			return nil
		}
		keys := calendar.Keys()
		units := make([]int, len(keys))
		for i, k := range keys {
			units[i] = calendar.PerDate[k]
		}
		return l.upsertEntries(ctx, calendar.RoomID, keys, units)
	})
}

func (l *Ledger) Calendar(ctx context.Context, roomID domainrooms.RoomID, window daterange.DateRange) (*domaininventory.QuotaCalendar, error) {
	var doc calendarDocument
	if err := l.calendars.FindOne(ctx, bson.M{"_id": string(roomID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("room calendar", string(roomID))
		}
		return nil, mapError("load calendar", err)
	}
	return l.withEntries(ctx, doc, window)
}

func (l *Ledger) Reserve(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Reserve(dr, units)
	})
}

func (l *Ledger) Release(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange, units int) error {
	return l.mutate(ctx, roomID, dr, dr.Days(), func(cal *domaininventory.QuotaCalendar) error {
		return cal.Release(dr, units)
	})
}

func (l *Ledger) SetQuota(ctx context.Context, roomID domainrooms.RoomID, days []time.Time, quota int) error {
	if quota < 0 {
		return apperr.Validation("quota", "must be non-negative")
	}
	if len(days) == 0 {
		return nil
	}
	return l.mutate(ctx, roomID, spanOf(days), days, func(cal *domaininventory.QuotaCalendar) error {
		return cal.SetQuota(days, quota)
	})
}

func (l *Ledger) mutate(ctx context.Context, roomID domainrooms.RoomID, window daterange.DateRange, days []time.Time, fn func(*domaininventory.QuotaCalendar) error) error {
	return inSession(ctx, l.db, func(ctx context.Context) error {
		var doc calendarDocument
		err := l.calendars.FindOneAndUpdate(ctx,
			bson.M{"_id": string(roomID)},
			bson.M{"$inc": bson.M{"version": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&doc)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.NotFound("room calendar", string(roomID))
			}
			return mapError("lock calendar", err)
		}
		cal, err := l.withEntries(ctx, doc, window)
		if err != nil {
			return err
		}
		if err := fn(cal); err != nil {
			return err
		}
		keys := make([]string, len(days))
		units := make([]int, len(days))
		for i, d := range days {
			keys[i] = daterange.Key(d)
			units[i] = cal.Quota(d)
		}
		return l.upsertEntries(ctx, roomID, keys, units)
	})
}

func (l *Ledger) withEntries(ctx context.Context, doc calendarDocument, window daterange.DateRange) (*domaininventory.QuotaCalendar, error) {
	cal := &domaininventory.QuotaCalendar{
		RoomID:           domainrooms.RoomID(doc.RoomID),
		DefaultUnitCount: doc.DefaultUnitCount,
		PerDate:          make(map[string]int),
		Version:          doc.Version,
	}
	filter := bson.M{
		"room_id": doc.RoomID,
		"day":     bson.M{"$gte": daterange.Key(window.CheckIn), "$lt": daterange.Key(window.CheckOut)},
	}
	cur, err := l.entries.Find(ctx, filter)
	if err != nil {
		return nil, mapError("load quota entries", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var e quotaEntryDocument
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		cal.PerDate[e.Day] = e.Units
	}
	if err := cur.Err(); err != nil {
		return nil, mapError("load quota entries", err)
	}
	return cal, nil
}

func (l *Ledger) upsertEntries(ctx context.Context, roomID domainrooms.RoomID, keys []string, units []int) error {
	models := make([]mongo.WriteModel, 0, len(keys))
	for i, key := range keys {
		id := entryID(roomID, key)
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{"$set": quotaEntryDocument{ID: id, RoomID: string(roomID), Day: key, Units: units[i]}}).
			SetUpsert(true))
	}
	_, err := l.entries.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return mapError("upsert quota entries", err)
}

// spanOf returns the smallest range covering days.
func spanOf(days []time.Time) daterange.DateRange {
	first, last := daterange.Day(days[0]), daterange.Day(days[0])
	for _, d := range days[1:] {
		d = daterange.Day(d)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return daterange.DateRange{CheckIn: first, CheckOut: last.AddDate(0, 0, 1)}
}

var _ domaininventory.Ledger = (*Ledger)(nil)
