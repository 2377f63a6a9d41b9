package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is one line of a project conversation. ReadBy only grows.
type ChatMessage struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID   `bson:"project_id" json:"projectId"`
	SenderID  primitive.ObjectID   `bson:"sender_id" json:"senderId"`
	Text      string               `bson:"text" json:"text"`
	Timestamp time.Time            `bson:"timestamp" json:"timestamp"`
	ReadBy    []primitive.ObjectID `bson:"read_by" json:"readBy"`
}

func (m ChatMessage) Key() primitive.ObjectID { return m.ID }

// UnreadBy reports whether userID still has to read the message.
// Own messages are never unread.
func (m ChatMessage) UnreadBy(userID primitive.ObjectID) bool {
	if m.SenderID == userID {
		return false
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return false
		}
	}
	return true
}
