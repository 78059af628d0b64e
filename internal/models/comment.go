package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a remark left on a pin. Username is copied from the author, not referenced.
type Comment struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	PinID       primitive.ObjectID `json:"pinId" bson:"pinId"`
	Username    string             `json:"username" bson:"username"`
	CommentText string             `json:"commentText" bson:"commentText"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}
