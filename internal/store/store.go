// Package store defines the persistence contract shared by the MongoDB and SQLite backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/pinboard-be/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a user's display name is already taken.
	ErrDuplicateName = errors.New("display name already taken")
)

// UserStore persists users and their saved pins.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	// FindUserByEmail returns the first user registered with email.
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	// SavePin appends pinID to the user's saved pins unless already present.
	// It reports whether the list changed.
	SavePin(ctx context.Context, userID, pinID primitive.ObjectID) (bool, error)
}

// PinStore persists pins and their like lists.
type PinStore interface {
	CreatePin(ctx context.Context, pin *models.Pin) error
	GetPin(ctx context.Context, id primitive.ObjectID) (models.Pin, error)
	GetPinsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Pin, error)
	FindPins(ctx context.Context, filter PinFilter) ([]models.Pin, error)
	// AddLike appends userID to the pin's likes unless already present.
	AddLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error)
	// RemoveLike removes userID from the pin's likes if present.
	RemoveLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error)
}

// CommentStore persists comments together with the owning pin's reference to them.
type CommentStore interface {
	// CreateComment stores the comment and links it from its pin. Either both
	// happen or neither does; a missing pin yields ErrNotFound.
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error)
	// RepairOrphanedComments links comments missing from their pin's list and
	// deletes comments whose pin no longer exists.
	RepairOrphanedComments(ctx context.Context) (RepairReport, error)
}

// Store is the full persistence layer.
type Store interface {
	UserStore
	PinStore
	CommentStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// PinFilter selects pins. Zero-valued fields do not constrain the result.
// AnyTags and Keyword combine with AND; within Keyword, title, description
// and exact tag matches combine with OR.
type PinFilter struct {
	// AnyTags matches pins carrying at least one of the tags. A non-nil empty
	// slice matches nothing.
	AnyTags []string
	// ExcludeID drops a single pin from the result.
	ExcludeID primitive.ObjectID
	// Keyword matches a case-insensitive substring of title or description,
	// or an exact tag.
	Keyword string
}

// RepairReport summarizes a reconciliation pass.
type RepairReport struct {
	Linked  int
	Deleted int
}

// ParseID converts a hex identifier, reporting malformed ids as ErrNotFound.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", ErrNotFound, hex)
	}
	return id, nil
}

// OrderByIDs arranges items to follow ids, dropping ids with no matching item.
func OrderByIDs[T any](ids []primitive.ObjectID, items []T, idOf func(T) primitive.ObjectID) []T {
	byID := make(map[primitive.ObjectID]T, len(items))
	for _, item := range items {
		byID[idOf(item)] = item
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out
}
