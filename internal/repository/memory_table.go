package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const memoryFeedBuffer = 256

// MemoryTable is an in-process table with the same semantics as MongoTable.
// Rows are kept as BSON documents so column names and $set patches behave
// exactly as they do remotely.
type MemoryTable[T any] struct {
	name string

	mu    sync.Mutex
	docs  []bson.M
	feeds map[*memoryFeed]struct{}
}

func NewMemoryTable[T any](name string) *MemoryTable[T] {
	return &MemoryTable[T]{
		name:  name,
		feeds: make(map[*memoryFeed]struct{}),
	}
}

func (t *MemoryTable[T]) Select(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]T, 0, len(t.docs))
	for _, doc := range t.docs {
		row, err := decodeDoc[T](doc)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", t.name, err)
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (t *MemoryTable[T]) Insert(ctx context.Context, row *T) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := encodeDoc(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := doc["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}
	if t.indexOf(id) >= 0 {
		return nil, fmt.Errorf("failed to insert into %s: duplicate id %s", t.name, id.Hex())
	}
	t.docs = append(t.docs, doc)

	stored, err := decodeDoc[T](doc)
	if err != nil {
		return nil, err
	}
	t.publish(doc)
	return stored, nil
}

func (t *MemoryTable[T]) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("failed to update %s %s: %w", t.name, id.Hex(), ErrNotFound)
	}
	patched, err := mergeDoc(t.docs[i], fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	row, err := decodeDoc[T](patched)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	t.docs[i] = patched
	return row, nil
}

func (t *MemoryTable[T]) AddToSet(ctx context.Context, ids []primitive.ObjectID, column string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		i := t.indexOf(id)
		if i < 0 {
			continue
		}
		var values bson.A
		switch existing := t.docs[i][column].(type) {
		case bson.A:
			values = existing
		case nil:
		default:
			return fmt.Errorf("failed to update %s.%s: column is not an array", t.name, column)
		}
		if !containsValue(values, value) {
			patched, err := mergeDoc(t.docs[i], bson.M{column: append(append(bson.A{}, values...), value)})
			if err != nil {
				return err
			}
			t.docs[i] = patched
		}
	}
	return nil
}

func (t *MemoryTable[T]) SetMany(ctx context.Context, ids []primitive.ObjectID, fields bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range ids {
		i := t.indexOf(id)
		if i < 0 {
			continue
		}
		patched, err := mergeDoc(t.docs[i], fields)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", t.name, err)
		}
		t.docs[i] = patched
	}
	return nil
}

func (t *MemoryTable[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return fmt.Errorf("failed to delete %s %s: %w", t.name, id.Hex(), ErrNotFound)
	}
	t.docs = append(t.docs[:i:i], t.docs[i+1:]...)
	return nil
}

// WatchInserts subscribes to rows inserted after the call.
func (t *MemoryTable[T]) WatchInserts(ctx context.Context) (InsertFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := &memoryFeed{
		events: make(chan []byte, memoryFeedBuffer),
		done:   make(chan struct{}),
	}
	f.detach = func() {
		t.mu.Lock()
		delete(t.feeds, f)
		t.mu.Unlock()
	}

	t.mu.Lock()
	t.feeds[f] = struct{}{}
	t.mu.Unlock()
	return f, nil
}

// CloseFeeds ends every open insert subscription, as a dropped connection would.
func (t *MemoryTable[T]) CloseFeeds() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for f := range t.feeds {
		f.end(errFeedClosed)
		delete(t.feeds, f)
	}
}

func (t *MemoryTable[T]) publish(doc bson.M) {
	event, err := bson.Marshal(bson.M{"operationType": "insert", "fullDocument": doc})
	if err != nil {
		logrus.WithError(err).WithField("table", t.name).Error("Failed to encode insert event")
		return
	}
	for f := range t.feeds {
		select {
		case f.events <- event:
		default:
			logrus.WithField("table", t.name).Warn("Insert feed is full, dropping event")
		}
	}
}

func (t *MemoryTable[T]) indexOf(id primitive.ObjectID) int {
	for i, doc := range t.docs {
		if docID, ok := doc["_id"].(primitive.ObjectID); ok && docID == id {
			return i
		}
	}
	return -1
}

var errFeedClosed = errors.New("insert feed closed")

type memoryFeed struct {
	events  chan []byte
	done    chan struct{}
	once    sync.Once
	current []byte
	err     error
	detach  func()
}

func (f *memoryFeed) Next(ctx context.Context) bool {
	select {
	case event := <-f.events:
		f.current = event
		return true
	case <-f.done:
		return false
	case <-ctx.Done():
		f.err = ctx.Err()
		return false
	}
}

func (f *memoryFeed) Decode(val interface{}) error {
	if f.current == nil {
		return errors.New("no current event")
	}
	return bson.Unmarshal(f.current, val)
}

func (f *memoryFeed) Err() error { return f.err }

func (f *memoryFeed) Close(ctx context.Context) error {
	f.end(nil)
	f.detach()
	return nil
}

func (f *memoryFeed) end(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

func encodeDoc(v interface{}) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeDoc[T any](doc bson.M) (*T, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var row T
	if err := bson.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// mergeDoc returns a copy of doc with fields set, normalised through a BSON round trip.
func mergeDoc(doc, fields bson.M) (bson.M, error) {
	merged := make(bson.M, len(doc)+len(fields))
	for k, v := range doc {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return encodeDoc(merged)
}

func containsValue(values bson.A, value interface{}) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
