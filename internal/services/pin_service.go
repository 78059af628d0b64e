package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/isdelr/pinboard-be/internal/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PinServiceProvider defines the interface for pin services.
type PinServiceProvider interface {
	CreatePin(ctx context.Context, input CreatePinInput) (models.Pin, error)
	GetAllPins(ctx context.Context) ([]models.PinDetail, error)
	GetPinByID(ctx context.Context, id string) (models.PinDetail, error)
	GetExplorePins(ctx context.Context) ([]models.PinDetail, error)
	GetRelatedPins(ctx context.Context, id string) ([]models.PinDetail, error)
	GetSlideshow(ctx context.Context) (map[string][]models.PinDetail, error)
	SearchPins(ctx context.Context, keyword string) ([]models.PinDetail, error)
	AddLike(ctx context.Context, pinID, userID string) (models.Pin, bool, error)
	RemoveLike(ctx context.Context, pinID, userID string) (models.Pin, bool, error)
}

// CreatePinInput is the data a client supplies for a new pin.
type CreatePinInput struct {
	Title        string   `json:"title"`
	Link         string   `json:"link"`
	ImgSource    string   `json:"img_source"`
	Description  string   `json:"description"`
	Extras       string   `json:"extras"`
	Tags         []string `json:"tags"`
	AllowComment bool     `json:"allow_comment"`
}

// PinService provides business logic for pins and likes.
type PinService struct {
	store     store.Store
	publisher events.Publisher
}

// NewPinService creates a new PinService.
func NewPinService(s store.Store, publisher events.Publisher) *PinService {
	return &PinService{store: s, publisher: publisher}
}

// CreatePin validates and persists a pin with no comments or likes.
func (s *PinService) CreatePin(ctx context.Context, input CreatePinInput) (models.Pin, error) {
	res := validator.ValidatePin(input.Title, input.ImgSource)
	if !res.Valid {
		return models.Pin{}, &ValidationError{Errors: res.Errors}
	}

	pin := models.Pin{
		Title:        strings.TrimSpace(input.Title),
		Link:         input.Link,
		ImgSource:    strings.TrimSpace(input.ImgSource),
		Description:  input.Description,
		Extras:       input.Extras,
		Tags:         models.UniqueTags(input.Tags),
		AllowComment: input.AllowComment,
		Comments:     []primitive.ObjectID{},
		Likes:        []primitive.ObjectID{},
	}
	if err := s.store.CreatePin(ctx, &pin); err != nil {
		return models.Pin{}, fmt.Errorf("failed to create pin: %w", err)
	}

	publish(ctx, s.publisher, events.New(events.PinCreated, pin.ID, primitive.NilObjectID, map[string]string{"title": pin.Title}))
	return pin, nil
}

// GetAllPins retrieves every pin with comments and likes resolved.
func (s *PinService) GetAllPins(ctx context.Context) ([]models.PinDetail, error) {
	return s.find(ctx, store.PinFilter{})
}

// GetPinByID retrieves a single resolved pin.
func (s *PinService) GetPinByID(ctx context.Context, id string) (models.PinDetail, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return models.PinDetail{}, err
	}
	pin, err := s.store.GetPin(ctx, oid)
	if err != nil {
		return models.PinDetail{}, err
	}
	details, err := s.populate(ctx, []models.Pin{pin})
	if err != nil {
		return models.PinDetail{}, err
	}
	return details[0], nil
}

// GetExplorePins retrieves pins tagged for the explore feed.
func (s *PinService) GetExplorePins(ctx context.Context) ([]models.PinDetail, error) {
	return s.find(ctx, store.PinFilter{AnyTags: []string{models.ExploreTag}})
}

// GetRelatedPins retrieves pins sharing any non-explore tag with pin id,
// excluding that pin.
func (s *PinService) GetRelatedPins(ctx context.Context, id string) ([]models.PinDetail, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	pin, err := s.store.GetPin(ctx, oid)
	if err != nil {
		return nil, err
	}

	tags := pin.RelatedTags()
	if len(tags) == 0 {
		return []models.PinDetail{}, nil
	}
	return s.find(ctx, store.PinFilter{AnyTags: tags, ExcludeID: pin.ID})
}

// GetSlideshow retrieves pins for each landing page category.
func (s *PinService) GetSlideshow(ctx context.Context) (map[string][]models.PinDetail, error) {
	out := make(map[string][]models.PinDetail, len(models.SlideshowCategories))
	for _, category := range models.SlideshowCategories {
		pins, err := s.find(ctx, store.PinFilter{AnyTags: []string{category}})
		if err != nil {
			return nil, fmt.Errorf("slideshow category %s: %w", category, err)
		}
		out[category] = pins
	}
	return out, nil
}

// SearchPins matches keyword against titles, descriptions and tags.
func (s *PinService) SearchPins(ctx context.Context, keyword string) ([]models.PinDetail, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []models.PinDetail{}, nil
	}
	return s.find(ctx, store.PinFilter{Keyword: keyword})
}

// AddLike records userID's like on the pin. The bool is false when the user
// had already liked it.
func (s *PinService) AddLike(ctx context.Context, pinID, userID string) (models.Pin, bool, error) {
	return s.changeLike(ctx, pinID, userID, s.store.AddLike, events.PinLiked)
}

// RemoveLike removes userID's like from the pin. The bool is false when there
// was no like to remove.
func (s *PinService) RemoveLike(ctx context.Context, pinID, userID string) (models.Pin, bool, error) {
	return s.changeLike(ctx, pinID, userID, s.store.RemoveLike, events.PinUnliked)
}

func (s *PinService) changeLike(ctx context.Context, pinID, userID string,
	apply func(context.Context, primitive.ObjectID, primitive.ObjectID) (bool, error), eventType string) (models.Pin, bool, error) {
	pid, err := store.ParseID(pinID)
	if err != nil {
		return models.Pin{}, false, err
	}
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return models.Pin{}, false, fieldError("userId", msgUserID)
	}

	changed, err := apply(ctx, pid, uid)
	if err != nil {
		return models.Pin{}, false, err
	}
	pin, err := s.store.GetPin(ctx, pid)
	if err != nil {
		return models.Pin{}, false, err
	}
	if changed {
		publish(ctx, s.publisher, events.New(eventType, pid, uid, map[string]int{"likes": len(pin.Likes)}))
	}
	return pin, changed, nil
}

func (s *PinService) find(ctx context.Context, filter store.PinFilter) ([]models.PinDetail, error) {
	pins, err := s.store.FindPins(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, pins)
}

// populate resolves comment and like references for a batch of pins with one
// lookup per collection.
func (s *PinService) populate(ctx context.Context, pins []models.Pin) ([]models.PinDetail, error) {
	var commentIDs, userIDs []primitive.ObjectID
	for _, p := range pins {
		commentIDs = append(commentIDs, p.Comments...)
		userIDs = append(userIDs, p.Likes...)
	}

	comments, err := s.store.GetCommentsByIDs(ctx, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve comments: %w", err)
	}
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve likes: %w", err)
	}

	commentByID := make(map[primitive.ObjectID]models.Comment, len(comments))
	for _, c := range comments {
		commentByID[c.ID] = c
	}
	userByID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	out := make([]models.PinDetail, 0, len(pins))
	for _, p := range pins {
		d := models.PinDetail{Pin: p, Comments: []models.Comment{}, Likes: []models.User{}}
		for _, id := range p.Comments {
			if c, ok := commentByID[id]; ok {
				d.Comments = append(d.Comments, c)
			}
		}
		for _, id := range p.Likes {
			if u, ok := userByID[id]; ok {
				d.Likes = append(d.Likes, u)
			}
		}
		out = append(out, d)
	}
	return out, nil
}
