package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when an update or delete targets a row that does not exist.
var ErrNotFound = errors.New("row not found")

// Table is the generic CRUD contract every remote table offers.
type Table[T any] interface {
	Select(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, row *T) (*T, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddToSet(ctx context.Context, ids []primitive.ObjectID, column string, value interface{}) error
	SetMany(ctx context.Context, ids []primitive.ObjectID, fields bson.M) error
}

// MongoTable stores rows of T in one MongoDB collection.
type MongoTable[T any] struct {
	name       string
	collection *mongo.Collection
}

// NewMongoTable creates a table bound to the named collection.
func NewMongoTable[T any](db *mongo.Database, name string) *MongoTable[T] {
	return &MongoTable[T]{
		name:       name,
		collection: db.Collection(name),
	}
}

// Select returns every row of the table.
func (t *MongoTable[T]) Select(ctx context.Context) ([]T, error) {
	cursor, err := t.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", t.name, err)
	}
	defer cursor.Close(ctx)

	rows := []T{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t.name, err)
	}
	return rows, nil
}

// Insert stores row and returns it as the database now holds it, id included.
func (t *MongoTable[T]) Insert(ctx context.Context, row *T) (*T, error) {
	result, err := t.collection.InsertOne(ctx, row)
	if err != nil {
		logrus.WithError(err).WithField("table", t.name).Error("Failed to insert row")
		return nil, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}

	var stored T
	if err := t.collection.FindOne(ctx, bson.M{"_id": result.InsertedID}).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to read back %s row: %w", t.name, err)
	}

	logrus.WithFields(logrus.Fields{
		"table": t.name,
		"id":    result.InsertedID,
	}).Info("Row inserted")
	return &stored, nil
}

// Update applies fields with $set and returns the updated row.
func (t *MongoTable[T]) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated T
	err := t.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update %s %s: %w", t.name, id.Hex(), ErrNotFound)
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"table": t.name,
			"id":    id.Hex(),
		}).Error("Failed to update row")
		return nil, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	return &updated, nil
}

// AddToSet appends value to the array column of every listed row, skipping duplicates.
func (t *MongoTable[T]) AddToSet(ctx context.Context, ids []primitive.ObjectID, column string, value interface{}) error {
	_, err := t.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$addToSet": bson.M{column: value}})
	if err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", t.name, column, err)
	}
	return nil
}

// SetMany applies the same $set to every listed row.
func (t *MongoTable[T]) SetMany(ctx context.Context, ids []primitive.ObjectID, fields bson.M) error {
	_, err := t.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	return nil
}

// Delete removes the row with the given id.
func (t *MongoTable[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := t.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"table": t.name,
			"id":    id.Hex(),
		}).Error("Failed to delete row")
		return fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("failed to delete %s %s: %w", t.name, id.Hex(), ErrNotFound)
	}
	return nil
}

// WatchInserts opens a change stream that only carries insert events.
func (t *MongoTable[T]) WatchInserts(ctx context.Context) (InsertFeed, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}
	stream, err := t.collection.Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", t.name, err)
	}
	return stream, nil
}
