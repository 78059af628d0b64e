// Package events carries activity notifications (pins created, liked, commented on)
// to live subscribers. Publishing is best effort and never blocks a request on failure.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types.
const (
	UserRegistered = "user.registered"
	PinCreated     = "pin.created"
	PinSaved       = "pin.saved"
	PinLiked       = "pin.liked"
	PinUnliked     = "pin.unliked"
	CommentCreated = "comment.created"
)

// Event is a single activity notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	PinID     string    `json:"pinId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// New builds an event. Zero ids are left out.
func New(eventType string, pinID, userID primitive.ObjectID, payload any) Event {
	e := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if !pinID.IsZero() {
		e.PinID = pinID.Hex()
	}
	if !userID.IsZero() {
		e.UserID = userID.Hex()
	}
	return e
}

// Publisher delivers events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
