package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotifyProjectStatus NotificationType = "project-status"
	NotifyNewMessage    NotificationType = "new-message"
	NotifyNewTask       NotificationType = "new-task"
	NotifyNewFile       NotificationType = "new-file"
	NotifyNewFeedback   NotificationType = "new-feedback"
)

// PanelNotification is a persisted alert shown in a user's notification dropdown.
// Only its owner marks it read.
type PanelNotification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	ProjectID   primitive.ObjectID `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Type        NotificationType   `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	Read        bool               `bson:"read" json:"read"`
}

func (n PanelNotification) Key() primitive.ObjectID { return n.ID }
