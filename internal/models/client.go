package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Client is a customer company. Client-role users are matched to it by contact e-mail.
type Client struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Company      string             `bson:"company" json:"company"`
	ContactEmail string             `bson:"contact_email" json:"contactEmail"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

func (c Client) Key() primitive.ObjectID { return c.ID }
