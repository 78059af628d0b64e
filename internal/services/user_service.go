package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/isdelr/pinboard-be/internal/validator"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, input RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (models.UserDetail, error)
	UpdateUser(ctx context.Context, id string, input UpdateUserInput) (models.UserDetail, error)
	DeleteUser(ctx context.Context, id string) error
	SavePin(ctx context.Context, userID, pinID string) (bool, error)
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Name     string `json:"fname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	DOB      string `json:"dob"`
}

// UpdateUserInput carries a partial profile update; absent fields stay unchanged.
type UpdateUserInput struct {
	Name     *string `json:"fname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	DOB      *string `json:"dob"`
}

// UserService provides business logic for user management.
type UserService struct {
	store      store.Store
	publisher  events.Publisher
	bcryptCost int
}

// NewUserService creates a new UserService.
func NewUserService(s store.Store, publisher events.Publisher, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{store: s, publisher: publisher, bcryptCost: bcryptCost}
}

func (s *UserService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fieldError("password", msgPasswordLong)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register validates input and creates a new account with no saved pins.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	res := validator.ValidateRegistration(input.Name, input.Email, input.Password, input.DOB)
	if !res.Valid {
		return models.User{}, &ValidationError{Errors: res.Errors}
	}

	email := strings.TrimSpace(input.Email)
	_, err := s.store.FindUserByEmail(ctx, email)
	if err == nil {
		return models.User{}, fieldError("email", msgEmailExists)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, err
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hashed,
		DOB:          strings.TrimSpace(input.DOB),
		SavedPins:    []primitive.ObjectID{},
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return models.User{}, fieldError("name", msgNameTaken)
		}
		return models.User{}, err
	}

	publish(ctx, s.publisher, events.New(events.UserRegistered, primitive.NilObjectID, user.ID, map[string]string{"fname": user.Name}))
	return user, nil
}

// Login verifies credentials and returns the matching user.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, error) {
	res := validator.ValidateLogin(email, password)
	if !res.Valid {
		return models.User{}, &ValidationError{Errors: res.Errors}
	}

	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, fieldError("email", msgNoAccount)
		}
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, fieldError("password", msgWrongPassword)
	}
	return user, nil
}

// GetAllUsers retrieves every user with saved pins as references.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// GetUserByID retrieves a user with saved pins resolved.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.UserDetail, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return models.UserDetail{}, err
	}
	user, err := s.store.GetUser(ctx, oid)
	if err != nil {
		return models.UserDetail{}, err
	}
	return s.resolve(ctx, user)
}

// UpdateUser merges the supplied fields into the user. A new password is hashed.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (models.UserDetail, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return models.UserDetail{}, err
	}

	res := validator.ValidateUserUpdate(input.Name, input.Email, input.Password, input.DOB)
	if !res.Valid {
		return models.UserDetail{}, &ValidationError{Errors: res.Errors}
	}

	update := models.UserUpdate{
		Name:  trimmed(input.Name),
		Email: trimmed(input.Email),
		DOB:   trimmed(input.DOB),
	}
	if input.Password != nil {
		hashed, err := s.hash(*input.Password)
		if err != nil {
			return models.UserDetail{}, err
		}
		update.PasswordHash = &hashed
	}

	if update.Empty() {
		user, err := s.store.GetUser(ctx, oid)
		if err != nil {
			return models.UserDetail{}, err
		}
		return s.resolve(ctx, user)
	}

	user, err := s.store.UpdateUser(ctx, oid, update)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return models.UserDetail{}, fieldError("username", msgNameTaken)
		}
		return models.UserDetail{}, err
	}
	return s.resolve(ctx, user)
}

// DeleteUser removes a user. Pins and likes referring to it are kept.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	oid, err := store.ParseID(id)
	if err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, oid)
}

// SavePin adds a pin to a user's collection. It reports false when the pin
// was already saved.
func (s *UserService) SavePin(ctx context.Context, userID, pinID string) (bool, error) {
	uid, err := store.ParseID(userID)
	if err != nil {
		return false, err
	}
	pid, err := store.ParseID(pinID)
	if err != nil {
		return false, err
	}

	if _, err := s.store.GetUser(ctx, uid); err != nil {
		return false, err
	}
	if _, err := s.store.GetPin(ctx, pid); err != nil {
		return false, err
	}

	added, err := s.store.SavePin(ctx, uid, pid)
	if err != nil {
		return false, err
	}
	if added {
		publish(ctx, s.publisher, events.New(events.PinSaved, pid, uid, nil))
	}
	return added, nil
}

func (s *UserService) resolve(ctx context.Context, user models.User) (models.UserDetail, error) {
	pins, err := s.store.GetPinsByIDs(ctx, user.SavedPins)
	if err != nil {
		return models.UserDetail{}, fmt.Errorf("resolve saved pins: %w", err)
	}
	return models.UserDetail{User: user, SavedPins: pins}, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
