package testutil

import (
	"context"
	"sync"

	"github.com/Dias221467/agency-portal/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecordingTable wraps a table, counts calls and can fail every call with Err.
// Gate, when set, runs before each call reaches the table; tests use it to
// hold writes open so they overlap.
type RecordingTable[T any] struct {
	repository.Table[T]

	mu    sync.Mutex
	calls int
	Err   error
	Gate  func()
}

func Record[T any](table repository.Table[T]) *RecordingTable[T] {
	return &RecordingTable[T]{Table: table}
}

func (r *RecordingTable[T]) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *RecordingTable[T]) hit() error {
	r.mu.Lock()
	r.calls++
	err, gate := r.Err, r.Gate
	r.mu.Unlock()
	if gate != nil {
		gate()
	}
	return err
}

// Hold returns a gate that parks every call until release is closed, and a
// channel that receives once per parked call.
func Hold(release <-chan struct{}) (gate func(), entered <-chan struct{}) {
	ch := make(chan struct{}, 16)
	return func() {
		ch <- struct{}{}
		<-release
	}, ch
}

func (r *RecordingTable[T]) Select(ctx context.Context) ([]T, error) {
	if err := r.hit(); err != nil {
		return nil, err
	}
	return r.Table.Select(ctx)
}

func (r *RecordingTable[T]) Insert(ctx context.Context, row *T) (*T, error) {
	if err := r.hit(); err != nil {
		return nil, err
	}
	return r.Table.Insert(ctx, row)
}

func (r *RecordingTable[T]) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error) {
	if err := r.hit(); err != nil {
		return nil, err
	}
	return r.Table.Update(ctx, id, fields)
}

func (r *RecordingTable[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Table.Delete(ctx, id)
}

func (r *RecordingTable[T]) AddToSet(ctx context.Context, ids []primitive.ObjectID, column string, value interface{}) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Table.AddToSet(ctx, ids, column, value)
}

func (r *RecordingTable[T]) SetMany(ctx context.Context, ids []primitive.ObjectID, fields bson.M) error {
	if err := r.hit(); err != nil {
		return err
	}
	return r.Table.SetMany(ctx, ids, fields)
}
