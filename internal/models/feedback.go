package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Feedback struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID primitive.ObjectID `bson:"project_id" json:"projectId"`
	ClientID  primitive.ObjectID `bson:"client_id" json:"clientId"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

func (f Feedback) Key() primitive.ObjectID { return f.ID }
