package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a registered account.
type User struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name         string               `json:"fname" bson:"fname"`
	Email        string               `json:"email" bson:"email"`
	PasswordHash string               `json:"-" bson:"password"` // Never expose this to the client
	DOB          string               `json:"dob" bson:"dob"`
	SavedPins    []primitive.ObjectID `json:"savedPins" bson:"savedPins"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// UserDetail is a User with its saved pins resolved.
type UserDetail struct {
	User
	SavedPins []Pin `json:"savedPins"`
}

// UserUpdate carries the fields of a partial user update. Nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	DOB          *string
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.DOB == nil && u.PasswordHash == nil
}
