package services

import (
	"context"
	"sort"
	"time"

	"github.com/Dias221467/agency-portal/internal/models"
	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityService struct {
	remote *repository.Remote
	store  *state.Store
}

func NewActivityService(remote *repository.Remote, store *state.Store) *ActivityService {
	return &ActivityService{remote: remote, store: store}
}

// LogActivity records an action and merges the stored entry.
func (s *ActivityService) LogActivity(
	ctx context.Context,
	userID primitive.ObjectID,
	action string,
	entityType string,
	entityID primitive.ObjectID,
	message string,
) error {
	activity := &models.ActivityLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Message:    message,
		Timestamp:  time.Now(),
	}

	stored, err := s.remote.ActivityLogs.Insert(ctx, activity)
	if err != nil {
		logrus.WithError(err).Error("Failed to log activity in service")
		return err
	}
	s.store.Dispatch(state.Inserted(models.TableActivityLogs, *stored))

	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"action":  action,
	}).Debug("Activity logged successfully")

	return nil
}

// GetRecentActivities returns the newest entries first. Admins see everyone's
// activity, other users only their own. limit <= 0 means no limit.
func (s *ActivityService) GetRecentActivities(u models.User, limit int) []models.ActivityLog {
	snap := s.store.Snapshot()
	out := []models.ActivityLog{}
	for _, a := range snap.ActivityLogs {
		if u.Role == models.RoleAdmin || a.UserID == u.ID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
