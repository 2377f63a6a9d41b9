package repository

import (
	"context"
)

// InsertFeed is a stream of insert events. *mongo.ChangeStream satisfies it.
// Decode fills a value shaped like InsertEvent.
type InsertFeed interface {
	Next(ctx context.Context) bool
	Decode(val interface{}) error
	Err() error
	Close(ctx context.Context) error
}

// Watcher opens insert subscriptions on a table.
type Watcher interface {
	WatchInserts(ctx context.Context) (InsertFeed, error)
}

// InsertEvent is the part of a change event the realtime bridge reads.
type InsertEvent[T any] struct {
	FullDocument T `bson:"fullDocument"`
}
