package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Inbox records consumed event ids per consumer; the unique index does the de-duplication.
type Inbox struct {
	col      *mongo.Collection
	consumer string
}

func (i *Inbox) ensureIndexes(ctx context.Context) error {
	_, err := i.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": i.consumer, "received_at": time.Now().UTC()}
	_, err := i.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, mapError("record inbox event", err)
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	_, err := i.col.DeleteOne(ctx, bson.M{"event_id": eventID, "consumer": i.consumer})
	return mapError("forget inbox event", err)
}
