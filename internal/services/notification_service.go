package services

import (
	"context"
	"sort"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/scope"
	"github.com/Dias221467/agency-portal/internal/state"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarkNotificationRead marks one panel notification of Owner as read.
type MarkNotificationRead struct {
	ID    primitive.ObjectID
	Owner primitive.ObjectID
}

func (c *MarkNotificationRead) Describe() (string, string) { return "notification", "marked as read" }

func (c *MarkNotificationRead) Target() (string, primitive.ObjectID) {
	return models.TableNotifications, c.ID
}

func (c *MarkNotificationRead) Validate(s state.State, actor models.User) error {
	n, ok := s.Notification(c.ID)
	if !ok {
		return ErrNotFound
	}
	if n.UserID != actor.ID || c.Owner != actor.ID {
		return ErrForbidden
	}
	return nil
}

func (c *MarkNotificationRead) Execute(ctx context.Context, r *repository.Remote, _ state.State) ([]state.Delta, error) {
	n, err := r.Notifications.Update(ctx, c.ID, bson.M{"read": true})
	if err != nil {
		return nil, notFound(err)
	}
	return []state.Delta{state.Updated(models.TableNotifications, *n)}, nil
}

// MarkAllNotificationsRead marks every unread notification of Owner as read.
// Running it twice changes nothing the second time.
type MarkAllNotificationsRead struct {
	Owner primitive.ObjectID
}

func (c *MarkAllNotificationsRead) Describe() (string, string) { return "notifications", "marked as read" }

func (c *MarkAllNotificationsRead) Validate(_ state.State, actor models.User) error {
	if c.Owner != actor.ID {
		return ErrForbidden
	}
	return nil
}

func (c *MarkAllNotificationsRead) Execute(ctx context.Context, r *repository.Remote, s state.State) ([]state.Delta, error) {
	var ids []primitive.ObjectID
	var deltas []state.Delta
	for _, n := range s.Notifications {
		if n.UserID != c.Owner || n.Read {
			continue
		}
		ids = append(ids, n.ID)
		n.Read = true
		deltas = append(deltas, state.Updated(models.TableNotifications, n))
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := r.Notifications.SetMany(ctx, ids, bson.M{"read": true}); err != nil {
		return nil, err
	}
	return deltas, nil
}

// NotificationService serves a user's notification panel.
type NotificationService struct {
	store   *state.Store
	mutator *Mutator
}

func NewNotificationService(store *state.Store, mutator *Mutator) *NotificationService {
	return &NotificationService{store: store, mutator: mutator}
}

// GetUserNotifications returns the user's notifications, newest first.
func (s *NotificationService) GetUserNotifications(u models.User) []models.PanelNotification {
	ns := scope.Notifications(u, s.store.Snapshot())
	sort.SliceStable(ns, func(i, j int) bool {
		return ns[i].Timestamp.After(ns[j].Timestamp)
	})
	if ns == nil {
		ns = []models.PanelNotification{}
	}
	return ns
}

// UnreadCount is the number of the user's unread notifications.
func (s *NotificationService) UnreadCount(u models.User) int {
	n := 0
	for _, pn := range scope.Notifications(u, s.store.Snapshot()) {
		if !pn.Read {
			n++
		}
	}
	return n
}

func (s *NotificationService) MarkNotificationAsRead(ctx context.Context, u models.User, id primitive.ObjectID) (Result, error) {
	return s.mutator.Submit(ctx, u, &MarkNotificationRead{ID: id, Owner: u.ID})
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, u models.User) (Result, error) {
	return s.mutator.Submit(ctx, u, &MarkAllNotificationsRead{Owner: u.ID})
}

func (s *NotificationService) DeleteNotification(ctx context.Context, u models.User, id primitive.ObjectID) (Result, error) {
	return s.mutator.Submit(ctx, u, &Delete[models.PanelNotification]{ID: id})
}
