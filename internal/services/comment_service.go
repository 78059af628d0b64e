package services

import (
	"context"
	"strings"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/isdelr/pinboard-be/internal/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	CreateComment(ctx context.Context, pinID string, input CreateCommentInput) (models.Comment, error)
}

// CreateCommentInput is the body of a new comment.
type CreateCommentInput struct {
	Username    string `json:"username"`
	CommentText string `json:"commentText"`
}

// CommentService provides business logic for comments.
type CommentService struct {
	store     store.Store
	publisher events.Publisher
}

// NewCommentService creates a new CommentService.
func NewCommentService(s store.Store, publisher events.Publisher) *CommentService {
	return &CommentService{store: s, publisher: publisher}
}

// CreateComment stores a comment on an existing pin and links it from the pin.
func (s *CommentService) CreateComment(ctx context.Context, pinID string, input CreateCommentInput) (models.Comment, error) {
	pid, err := store.ParseID(pinID)
	if err != nil {
		return models.Comment{}, err
	}

	res := validator.ValidateComment(input.Username, input.CommentText)
	if !res.Valid {
		return models.Comment{}, &ValidationError{Errors: res.Errors}
	}

	comment := models.Comment{
		PinID:       pid,
		Username:    strings.TrimSpace(input.Username),
		CommentText: input.CommentText,
	}
	if err := s.store.CreateComment(ctx, &comment); err != nil {
		return models.Comment{}, err
	}

	publish(ctx, s.publisher, events.New(events.CommentCreated, pid, primitive.NilObjectID, comment))
	return comment, nil
}
