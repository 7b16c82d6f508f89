package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collection = "ratedesk_inbox"
	retention  = 30 * 24 * time.Hour
)

var ErrEmptyEventID = errors.New("inbox: empty event id")

// Store remembers which events a named consumer has already applied. Entries expire after
// retention, which bounds how late a redelivery can still be recognised.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewStore(ctx context.Context, db *mongo.Database, consumer string) (*Store, error) {
	col := db.Collection(collection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "consumer", Value: 1}, {Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "received_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds()))},
	})
	if err != nil {
		return nil, fmt.Errorf("inbox indexes: %w", err)
	}
	return &Store{col: col, consumer: consumer, now: time.Now}, nil
}

// Seen inserts the (consumer, event) pair; a duplicate key means it was applied before.
func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}
	_, err := s.col.InsertOne(ctx, bson.M{
		"consumer":    s.consumer,
		"event_id":    eventID,
		"received_at": s.now().UTC(),
	})
	switch {
	case err == nil:
		return false, nil
	case mongo.IsDuplicateKeyError(err):
		return true, nil
	default:
		return false, err
	}
}
