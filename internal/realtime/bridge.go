package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errFeedEnded = errors.New("chat insert feed ended")

// Publisher delivers an event to one user's sockets.
type Publisher interface {
	Publish(userID primitive.ObjectID, event string, payload interface{})
}

// Bridge turns chat inserts seen on the remote into local state and socket
// events. It is the only path by which a sent message reaches the store.
type Bridge struct {
	watcher    repository.Watcher
	store      *state.Store
	publisher  Publisher
	newBackOff func() backoff.BackOff

	connects atomic.Int64
}

type BridgeOption func(*Bridge)

// WithBackOff replaces the reconnect policy.
func WithBackOff(newBackOff func() backoff.BackOff) BridgeOption {
	return func(b *Bridge) { b.newBackOff = newBackOff }
}

func NewBridge(watcher repository.Watcher, store *state.Store, publisher Publisher, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		watcher:    watcher,
		store:      store,
		publisher:  publisher,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Connects counts successful subscriptions, including reconnects.
func (b *Bridge) Connects() int64 {
	return b.connects.Load()
}

// Run consumes chat inserts until ctx is cancelled, resubscribing with
// backoff whenever the feed fails. It returns nil on cancellation and an
// error only when the backoff policy gives up.
func (b *Bridge) Run(ctx context.Context) error {
	policy := b.newBackOff()
	for {
		delivered, err := b.consume(ctx)
		if ctx.Err() != nil {
			logrus.Info("Realtime bridge stopped")
			return nil
		}
		if delivered > 0 {
			policy.Reset()
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("realtime bridge gave up: %w", err)
		}
		logrus.WithError(err).WithField("retryIn", wait.String()).Warn("Chat subscription lost, reconnecting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logrus.Info("Realtime bridge stopped")
			return nil
		case <-timer.C:
		}
	}
}

func (b *Bridge) consume(ctx context.Context) (int, error) {
	feed, err := b.watcher.WatchInserts(ctx)
	if err != nil {
		return 0, err
	}
	defer feed.Close(context.Background())

	b.connects.Add(1)
	logrus.Info("Subscribed to chat inserts")

	delivered := 0
	for feed.Next(ctx) {
		var event repository.InsertEvent[models.ChatMessage]
		if err := feed.Decode(&event); err != nil {
			logrus.WithError(err).Warn("Failed to decode chat insert")
			continue
		}
		b.deliver(event.FullDocument)
		delivered++
	}
	if err := feed.Err(); err != nil {
		return delivered, err
	}
	return delivered, errFeedEnded
}

func (b *Bridge) deliver(m models.ChatMessage) {
	if m.ReadBy == nil {
		m.ReadBy = []primitive.ObjectID{}
	}
	snap := b.store.Dispatch(state.Inserted(models.TableChatMessages, m))

	project, ok := snap.Project(m.ProjectID)
	if !ok {
		logrus.WithField("projectID", m.ProjectID.Hex()).Warn("Chat message for unknown project")
		return
	}
	for _, u := range scope.Participants(project, snap) {
		b.publisher.Publish(u.ID, "message", m)
	}
}
