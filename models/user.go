package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email"`
	Password         string             `bson:"password" json:"-"`
	Role             string             `bson:"role" json:"role"`
	ResetToken       string             `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpiry *time.Time         `bson:"resetTokenExpiry,omitempty" json:"-"`
}

// UserUpdate carries the fields replaced by an update. An empty Password keeps the stored hash.
type UserUpdate struct {
	Name     string
	Email    string
	Password string
}

// Identity is the authenticated caller decoded from a bearer token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
