package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/isdelr/pinboard-be/internal/database"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "pins.db"))
	require.NoError(t, err)
	require.NoError(t, database.MigrateSQLite(db))
	s := New(db)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func createUser(t *testing.T, s *Store, name, email string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, PasswordHash: "hash", DOB: "1990-01-01"}
	require.NoError(t, s.CreateUser(context.Background(), &u))
	return u
}

func createPin(t *testing.T, s *Store, title string, tags ...string) models.Pin {
	t.Helper()
	p := models.Pin{Title: title, ImgSource: "https://img.test/" + title, Tags: tags}
	require.NoError(t, s.CreatePin(context.Background(), &p))
	return p
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := createUser(t, s, "ann", "ann@example.com")
	assert.False(t, u.ID.IsZero())

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Empty(t, got.SavedPins)
	assert.NotNil(t, got.SavedPins)

	byEmail, err := s.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	email := "ann@new.test"
	updated, err := s.UpdateUser(ctx, u.ID, models.UserUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	assert.Equal(t, "ann", updated.Name)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteUser(ctx, u.ID), store.ErrNotFound))
}

func TestDuplicateDisplayName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	createUser(t, s, "ann", "ann@example.com")
	bob := createUser(t, s, "bob", "bob@example.com")

	dup := models.User{Name: "ann", Email: "other@example.com", PasswordHash: "x"}
	err := s.CreateUser(ctx, &dup)
	assert.True(t, errors.Is(err, store.ErrDuplicateName))

	name := "ann"
	_, err = s.UpdateUser(ctx, bob.ID, models.UserUpdate{Name: &name})
	assert.True(t, errors.Is(err, store.ErrDuplicateName))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUpdateMissingUser(t *testing.T) {
	s := newTestStore(t)
	dob := "2000-01-01"
	_, err := s.UpdateUser(context.Background(), primitive.NewObjectID(), models.UserUpdate{DOB: &dob})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSavePinOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := createUser(t, s, "ann", "ann@example.com")
	p1 := createPin(t, s, "one")
	p2 := createPin(t, s, "two")

	added, err := s.SavePin(ctx, u.ID, p2.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.SavePin(ctx, u.ID, p2.ID)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = s.SavePin(ctx, u.ID, p1.ID)
	require.NoError(t, err)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p2.ID, p1.ID}, got.SavedPins)

	_, err = s.SavePin(ctx, primitive.NewObjectID(), p1.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateAndGetPin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := models.Pin{Title: "Sunset", ImgSource: "https://img.test/s.jpg", Link: "https://x.test", Tags: []string{"a", "b"}, AllowComment: true}
	require.NoError(t, s.CreatePin(ctx, &p))

	got, err := s.GetPin(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset", got.Title)
	assert.Equal(t, "https://x.test", got.Link)
	assert.True(t, got.AllowComment)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Empty(t, got.Comments)
	assert.Empty(t, got.Likes)

	_, err = s.GetPin(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGetPinsByIDsKeepsOrderAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := createPin(t, s, "a")
	b := createPin(t, s, "b")

	pins, err := s.GetPinsByIDs(ctx, []primitive.ObjectID{b.ID, primitive.NewObjectID(), a.ID})
	require.NoError(t, err)
	require.Len(t, pins, 2)
	assert.Equal(t, b.ID, pins[0].ID)
	assert.Equal(t, a.ID, pins[1].ID)
}

func TestFindPins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	sunset := models.Pin{Title: "Golden Sunset", ImgSource: "i", Description: "beach at dusk", Tags: []string{"Travel", models.ExploreTag}}
	require.NoError(t, s.CreatePin(ctx, &sunset))
	car := createPin(t, s, "Red car", "Car")
	createPin(t, s, "100% pure", "misc")

	titles := func(pins []models.Pin) []string {
		var out []string
		for _, p := range pins {
			out = append(out, p.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		filter store.PinFilter
		want   []string
	}{
		{"all", store.PinFilter{}, []string{"Golden Sunset", "Red car", "100% pure"}},
		{"any tag", store.PinFilter{AnyTags: []string{"Car", "Travel"}}, []string{"Golden Sunset", "Red car"}},
		{"empty tag set", store.PinFilter{AnyTags: []string{}}, nil},
		{"exclude", store.PinFilter{AnyTags: []string{"Car"}, ExcludeID: car.ID}, nil},
		{"title case-insensitive", store.PinFilter{Keyword: "sunset"}, []string{"Golden Sunset"}},
		{"description", store.PinFilter{Keyword: "DUSK"}, []string{"Golden Sunset"}},
		{"exact tag", store.PinFilter{Keyword: "Car"}, []string{"Red car"}},
		{"percent is literal", store.PinFilter{Keyword: "0%"}, []string{"100% pure"}},
		{"no match", store.PinFilter{Keyword: "zebra"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pins, err := s.FindPins(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(pins))
		})
	}
}

func TestLikes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := createPin(t, s, "p")
	u1, u2, u3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	for _, u := range []primitive.ObjectID{u1, u2, u3} {
		added, err := s.AddLike(ctx, p.ID, u)
		require.NoError(t, err)
		assert.True(t, added)
	}
	added, err := s.AddLike(ctx, p.ID, u1)
	require.NoError(t, err)
	assert.False(t, added)

	// Removing a like that is not last removes that like only.
	removed, err := s.RemoveLike(ctx, p.ID, u1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveLike(ctx, p.ID, u1)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err := s.GetPin(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{u2, u3}, got.Likes)

	_, err = s.AddLike(ctx, primitive.NewObjectID(), u1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateComment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := createPin(t, s, "p")

	c := models.Comment{PinID: p.ID, Username: "bob", CommentText: "nice"}
	require.NoError(t, s.CreateComment(ctx, &c))

	got, err := s.GetPin(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{c.ID}, got.Comments)

	comments, err := s.GetCommentsByIDs(ctx, got.Comments)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].CommentText)
	assert.Equal(t, p.ID, comments[0].PinID)
}

func TestCreateCommentOnMissingPinStoresNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := models.Comment{PinID: primitive.NewObjectID(), Username: "bob", CommentText: "hello?"}
	err := s.CreateComment(ctx, &c)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM comments").Scan(&n))
	assert.Zero(t, n)
}

func TestRepairOrphanedComments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := createPin(t, s, "p")

	// Simulate writes interrupted between the comment insert and the pin link.
	linked := primitive.NewObjectID()
	dangling := primitive.NewObjectID()
	const insert = "INSERT INTO comments(id, pin_id, username, comment_text, created_at, updated_at) VALUES(?, ?, 'bob', 'hi', '', '')"
	_, err := s.db.Exec(insert, linked.Hex(), p.ID.Hex())
	require.NoError(t, err)
	_, err = s.db.Exec(insert, dangling.Hex(), primitive.NewObjectID().Hex())
	require.NoError(t, err)

	report, err := s.RepairOrphanedComments(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RepairReport{Linked: 1, Deleted: 1}, report)

	got, err := s.GetPin(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{linked}, got.Comments)

	report, err = s.RepairOrphanedComments(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.RepairReport{}, report)
}
