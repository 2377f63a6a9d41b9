package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the portal a user signs in to.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleClient   Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee || r == RoleClient
}

// User represents an account in the agency portal.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Role         Role               `bson:"role" json:"role"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AvatarURL    string             `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

func (u User) Key() primitive.ObjectID { return u.ID }

// PublicUser is the subset of a user shared with other portals (team lists, chat senders).
type PublicUser struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  Role               `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
