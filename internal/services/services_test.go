package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/pinboard-be/internal/database"
	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/isdelr/pinboard-be/internal/store/sqlitestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    store.Store
	events   *recorder
	users    *UserService
	pins     *PinService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	require.NoError(t, database.MigrateSQLite(db))
	s := sqlitestore.New(db)
	t.Cleanup(func() { s.Close(context.Background()) })

	rec := &recorder{}
	return &fixture{
		store:    s,
		events:   rec,
		users:    NewUserService(s, rec, bcrypt.MinCost),
		pins:     NewPinService(s, rec),
		comments: NewCommentService(s, rec),
	}
}

func (f *fixture) register(t *testing.T, name, email string) models.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "Secret123", DOB: "1990-05-01"})
	require.NoError(t, err)
	return u
}

func (f *fixture) pin(t *testing.T, title string, tags ...string) models.Pin {
	t.Helper()
	p, err := f.pins.CreatePin(context.Background(), CreatePinInput{Title: title, ImgSource: "https://img.test/" + title, Tags: tags})
	require.NoError(t, err)
	return p
}

func validationErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Errors
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u := f.register(t, "ann", "ann@example.com")
	assert.NotEqual(t, "Secret123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Secret123")))
	assert.Empty(t, u.SavedPins)
	assert.Equal(t, []string{events.UserRegistered}, f.events.types())

	t.Run("all invalid fields reported together", func(t *testing.T) {
		_, err := f.users.Register(ctx, RegisterInput{Email: "nope", Password: "short", DOB: "yesterday"})
		errs := validationErrors(t, err)
		assert.Len(t, errs, 4)
		assert.Contains(t, errs, "fname")
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
		assert.Contains(t, errs, "dob")
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.users.Register(ctx, RegisterInput{Name: "other", Email: "ann@example.com", Password: "Secret123", DOB: "1990-05-01"})
		assert.Equal(t, msgEmailExists, validationErrors(t, err)["email"])
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := f.users.Register(ctx, RegisterInput{Name: "ann", Email: "ann2@example.com", Password: "Secret123", DOB: "1990-05-01"})
		assert.Equal(t, msgNameTaken, validationErrors(t, err)["name"])
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "ann", "ann@example.com")

	got, err := f.users.Login(ctx, "ann@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.Login(ctx, "ann@example.com", "Wrong1234")
	assert.Equal(t, msgWrongPassword, validationErrors(t, err)["password"])

	_, err = f.users.Login(ctx, "nobody@example.com", "Secret123")
	assert.Equal(t, msgNoAccount, validationErrors(t, err)["email"])

	_, err = f.users.Login(ctx, "", "")
	assert.Len(t, validationErrors(t, err), 2)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ann := f.register(t, "ann", "ann@example.com")
	f.register(t, "bob", "bob@example.com")

	name, password := "annie", "NewPass99"
	detail, err := f.users.UpdateUser(ctx, ann.ID.Hex(), UpdateUserInput{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "annie", detail.Name)
	assert.Equal(t, "ann@example.com", detail.Email)
	assert.NotNil(t, detail.SavedPins)

	_, err = f.users.Login(ctx, "ann@example.com", "NewPass99")
	assert.NoError(t, err)

	unchanged, err := f.users.UpdateUser(ctx, ann.ID.Hex(), UpdateUserInput{})
	require.NoError(t, err)
	assert.Equal(t, "annie", unchanged.Name)

	taken := "bob"
	_, err = f.users.UpdateUser(ctx, ann.ID.Hex(), UpdateUserInput{Name: &taken})
	assert.Equal(t, msgNameTaken, validationErrors(t, err)["username"])

	bad := "not-an-email"
	_, err = f.users.UpdateUser(ctx, ann.ID.Hex(), UpdateUserInput{Email: &bad})
	assert.Contains(t, validationErrors(t, err), "email")

	_, err = f.users.UpdateUser(ctx, primitive.NewObjectID().Hex(), UpdateUserInput{Name: &name})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "ann", "ann@example.com")

	require.NoError(t, f.users.DeleteUser(ctx, u.ID.Hex()))
	assert.True(t, errors.Is(f.users.DeleteUser(ctx, u.ID.Hex()), store.ErrNotFound))
	assert.True(t, errors.Is(f.users.DeleteUser(ctx, "garbage"), store.ErrNotFound))
}

func TestSavePin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "ann", "ann@example.com")
	p := f.pin(t, "sunset")

	added, err := f.users.SavePin(ctx, u.ID.Hex(), p.ID.Hex())
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.users.SavePin(ctx, u.ID.Hex(), p.ID.Hex())
	require.NoError(t, err)
	assert.False(t, added)

	detail, err := f.users.GetUserByID(ctx, u.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.SavedPins, 1)
	assert.Equal(t, "sunset", detail.SavedPins[0].Title)

	_, err = f.users.SavePin(ctx, primitive.NewObjectID().Hex(), p.ID.Hex())
	assert.True(t, errors.Is(err, store.ErrNotFound))
	_, err = f.users.SavePin(ctx, u.ID.Hex(), primitive.NewObjectID().Hex())
	assert.True(t, errors.Is(err, store.ErrNotFound))

	assert.Equal(t, 1, count(f.events.types(), events.PinSaved))
}

func TestCreatePin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := f.pin(t, "sunset", "a", "b", "a")
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	assert.Empty(t, p.Comments)
	assert.Empty(t, p.Likes)

	_, err := f.pins.CreatePin(ctx, CreatePinInput{})
	errs := validationErrors(t, err)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "img_source")
}

func TestPinFeeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ref := f.pin(t, "ref", "Car", models.ExploreTag)
	sibling := f.pin(t, "sibling", "Car")
	explore := f.pin(t, "explore-only", models.ExploreTag)
	anime := f.pin(t, "anime", "Anime")
	untagged := f.pin(t, "untagged")

	ids := func(pins []models.PinDetail) []primitive.ObjectID {
		out := []primitive.ObjectID{}
		for _, p := range pins {
			out = append(out, p.ID)
		}
		return out
	}

	all, err := f.pins.GetAllPins(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	got, err := f.pins.GetExplorePins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{ref.ID, explore.ID}, ids(got))

	got, err = f.pins.GetRelatedPins(ctx, ref.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{sibling.ID}, ids(got))

	// The explore tag alone does not relate pins.
	got, err = f.pins.GetRelatedPins(ctx, explore.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.pins.GetRelatedPins(ctx, untagged.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.pins.GetRelatedPins(ctx, primitive.NewObjectID().Hex())
	assert.True(t, errors.Is(err, store.ErrNotFound))

	show, err := f.pins.GetSlideshow(ctx)
	require.NoError(t, err)
	assert.Len(t, show, 4)
	assert.Equal(t, []primitive.ObjectID{ref.ID, sibling.ID}, ids(show["Car"]))
	assert.Equal(t, []primitive.ObjectID{anime.ID}, ids(show["Anime"]))
	assert.Empty(t, show["Traval"])
	assert.NotNil(t, show["Act"])

	got, err = f.pins.SearchPins(ctx, "ANIME")
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{anime.ID}, ids(got))

	got, err = f.pins.SearchPins(ctx, "(")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLikes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.pin(t, "sunset")
	ann := f.register(t, "ann", "ann@example.com")
	bob := f.register(t, "bob", "bob@example.com")

	pin, changed, err := f.pins.AddLike(ctx, p.ID.Hex(), ann.ID.Hex())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []primitive.ObjectID{ann.ID}, pin.Likes)

	pin, changed, err = f.pins.AddLike(ctx, p.ID.Hex(), ann.ID.Hex())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, pin.Likes, 1)

	_, _, err = f.pins.AddLike(ctx, p.ID.Hex(), bob.ID.Hex())
	require.NoError(t, err)

	// Removing the first like must leave the second one.
	pin, changed, err = f.pins.RemoveLike(ctx, p.ID.Hex(), ann.ID.Hex())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []primitive.ObjectID{bob.ID}, pin.Likes)

	detail, err := f.pins.GetPinByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.Likes, 1)
	assert.Equal(t, "bob", detail.Likes[0].Name)

	_, _, err = f.pins.AddLike(ctx, p.ID.Hex(), "nope")
	assert.Contains(t, validationErrors(t, err), "userId")

	_, _, err = f.pins.AddLike(ctx, primitive.NewObjectID().Hex(), ann.ID.Hex())
	assert.True(t, errors.Is(err, store.ErrNotFound))

	types := f.events.types()
	assert.Equal(t, 2, count(types, events.PinLiked))
	assert.Equal(t, 1, count(types, events.PinUnliked))
}

func TestCreateComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.pin(t, "sunset")

	c, err := f.comments.CreateComment(ctx, p.ID.Hex(), CreateCommentInput{Username: "bob", CommentText: "lovely"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, c.PinID)

	detail, err := f.pins.GetPinByID(ctx, p.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "lovely", detail.Comments[0].CommentText)
	assert.Equal(t, "bob", detail.Comments[0].Username)

	_, err = f.comments.CreateComment(ctx, p.ID.Hex(), CreateCommentInput{})
	assert.Len(t, validationErrors(t, err), 2)

	_, err = f.comments.CreateComment(ctx, primitive.NewObjectID().Hex(), CreateCommentInput{Username: "bob", CommentText: "hi"})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	assert.Equal(t, 1, count(f.events.types(), events.CommentCreated))
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	h := NewHealthService(f.store)

	status, err := h.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Positive(t, status.Goroutines)

	require.NoError(t, f.store.Close(context.Background()))
	status, err = h.Check(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "unavailable", status.Status)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Errors: map[string]string{"email": "x", "dob": "y"}}
	assert.Equal(t, "invalid input: dob, email", err.Error())
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
