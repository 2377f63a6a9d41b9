package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/notify"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const afterCommitTimeout = 10 * time.Second

// Command is one remote write. Execute performs the write and returns the
// deltas to merge; it must not touch the store.
type Command interface {
	// Describe names the entity and the past-tense verb, e.g. ("project", "created").
	Describe() (entity, verb string)
	Validate(s state.State, actor models.User) error
	Execute(ctx context.Context, r *repository.Remote, s state.State) ([]state.Delta, error)
}

// targeted commands write one existing row and are serialised per row.
type targeted interface {
	Target() (table string, id primitive.ObjectID)
}

// echoed commands are merged by the realtime subscription, not by Submit.
type echoed interface {
	EchoedBySubscription() bool
}

// Publisher pushes events to a connected user.
type Publisher interface {
	Publish(userID primitive.ObjectID, event string, payload interface{})
}

// CommitHook runs after a successful write, off the request path.
type CommitHook func(ctx context.Context, before state.State, deltas []state.Delta)

// Result is what a successful Submit produced.
type Result struct {
	Deltas []state.Delta
	Toast  notify.Toast
}

// Mutator is the single path through which local state changes after a write.
type Mutator struct {
	remote    *repository.Remote
	store     *state.Store
	router    *notify.Router
	publisher Publisher
	activity  *ActivityService
	hooks     []CommitHook
	locks     *keyedMutex
	wg        sync.WaitGroup
}

func NewMutator(remote *repository.Remote, store *state.Store, router *notify.Router, publisher Publisher) *Mutator {
	return &Mutator{
		remote:    remote,
		store:     store,
		router:    router,
		publisher: publisher,
		activity:  NewActivityService(remote, store),
		locks:     newKeyedMutex(),
	}
}

// OnCommit registers a hook. Hooks must be registered before the first Submit.
func (m *Mutator) OnCommit(hook CommitHook) {
	m.hooks = append(m.hooks, hook)
}

// Submit validates cmd, performs its remote write and merges the result.
// On failure nothing is merged and the returned Result carries an ERROR toast.
func (m *Mutator) Submit(ctx context.Context, actor models.User, cmd Command) (Result, error) {
	entity, verb := cmd.Describe()
	fields := logrus.Fields{
		"actorID": actor.ID.Hex(),
		"entity":  entity,
		"verb":    verb,
	}

	if t, ok := cmd.(targeted); ok {
		unlock := m.locks.Lock(lockKey(t.Target()))
		defer unlock()
	}

	before := m.store.Snapshot()
	if err := cmd.Validate(before, actor); err != nil {
		logrus.WithFields(fields).WithError(err).Warn("Command rejected")
		return Result{Toast: notify.Error("%s", rejectionMessage(entity, err))}, err
	}

	deltas, err := cmd.Execute(ctx, m.remote, before)
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Remote write failed")
		return Result{Toast: notify.Error("Failed to %s %s", presentTense(verb), entity)},
			fmt.Errorf("failed to %s %s: %w", presentTense(verb), entity, err)
	}

	if e, ok := cmd.(echoed); !ok || !e.EchoedBySubscription() {
		m.store.Dispatch(deltas...)
	}
	logrus.WithFields(fields).WithField("rows", len(deltas)).Info("Command applied")

	m.afterCommit(actor, entity, verb, before, deltas)
	return Result{Deltas: deltas, Toast: notify.Success("%s %s successfully", capitalize(entity), verb)}, nil
}

// Flush waits for pending activity logs, notifications and hooks.
func (m *Mutator) Flush() {
	m.wg.Wait()
}

func (m *Mutator) afterCommit(actor models.User, entity, verb string, before state.State, deltas []state.Delta) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), afterCommitTimeout)
		defer cancel()

		for _, d := range deltas {
			if logsActivity(d.Table) {
				m.logActivity(ctx, actor, entity, verb, d)
			}
			for _, n := range m.router.Route(before, d, actor) {
				m.deliver(ctx, n)
			}
		}
		for _, hook := range m.hooks {
			hook(ctx, before, deltas)
		}
	}()
}

func (m *Mutator) logActivity(ctx context.Context, actor models.User, entity, verb string, d state.Delta) {
	action := strings.ReplaceAll(entity, " ", "_") + "_" + strings.ReplaceAll(verb, " ", "_")
	message := fmt.Sprintf("%s %s %s", displayName(actor), verb, entity)
	if err := m.activity.LogActivity(ctx, actor.ID, action, d.Table, d.ID, message); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to log activity")
	}
}

func (m *Mutator) deliver(ctx context.Context, n models.PanelNotification) {
	stored, err := m.remote.Notifications.Insert(ctx, &n)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"userID": n.UserID.Hex(),
			"type":   n.Type,
		}).Warn("Failed to create panel notification")
		return
	}
	m.store.Dispatch(state.Inserted(models.TableNotifications, *stored))
	if m.publisher != nil {
		m.publisher.Publish(stored.UserID, "notification", stored)
	}
}

func logsActivity(table string) bool {
	switch table {
	case models.TableActivityLogs, models.TableNotifications, models.TableChatMessages:
		return false
	}
	return true
}

func displayName(u models.User) string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "system"
}

func rejectionMessage(entity string, err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "Invalid " + entity + ": " + verr.Reason
	case errors.Is(err, ErrLastAdmin):
		return "Cannot remove the last admin account"
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to change this " + entity
	case errors.Is(err, ErrNotFound):
		return capitalize(entity) + " not found"
	}
	return "Invalid " + entity + ": " + err.Error()
}

func presentTense(verb string) string {
	switch verb {
	case "created":
		return "create"
	case "updated":
		return "update"
	case "deleted":
		return "delete"
	case "sent":
		return "send"
	case "uploaded":
		return "upload"
	case "marked as read":
		return "mark as read"
	}
	return verb
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// lockKey is the per-row lock key. All user rows share one key: the admin
// count checked by Validate spans every user, so two admins removing each
// other must not interleave.
func lockKey(table string, id primitive.ObjectID) string {
	if table == models.TableUsers {
		return table
	}
	return table + ":" + id.Hex()
}

// keyedMutex serialises work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	waiters int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.waiters++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.waiters--
		if l.waiters == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
