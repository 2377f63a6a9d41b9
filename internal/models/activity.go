package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	Action     string             `bson:"action" json:"action"`           // e.g. "project_created", "invoice_updated"
	EntityType string             `bson:"entity_type" json:"entityType"`  // table the action touched
	EntityID   primitive.ObjectID `bson:"entity_id" json:"entityId"`
	Message    string             `bson:"message" json:"message"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

func (a ActivityLog) Key() primitive.ObjectID { return a.ID }
