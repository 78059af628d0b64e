// Package mongostore implements store.Store on MongoDB. Reference lists are
// arrays of ObjectIDs inside the owning document, changed with conditional
// single-document updates so concurrent adds and removes stay idempotent.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/isdelr/pinboard-be/internal/database"
	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// orphanGracePeriod keeps the reconciler away from comments whose pin link is still being written.
const orphanGracePeriod = time.Minute

// Store is a store.Store backed by a MongoDB database.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	pins     *mongo.Collection
	comments *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New returns a Store using dbName on an already connected client.
func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:   client,
		users:    db.Collection(database.UsersCollection),
		pins:     db.Collection(database.PinsCollection),
		comments: db.Collection(database.CommentsCollection),
	}
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func isDuplicateName(err error) bool {
	// fname carries the only unique index besides _id.
	return mongo.IsDuplicateKeyError(err)
}

func notFound(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return err
}

func byIDAsc() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
}

// ---- users

func normalizeUser(u *models.User) {
	if u.SavedPins == nil {
		u.SavedPins = []primitive.ObjectID{}
	}
}

func (s *Store) findUsers(ctx context.Context, filter any) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, filter, byIDAsc())
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		normalizeUser(&users[i])
	}
	return users, nil
}

// ListUsers retrieves all users.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.findUsers(ctx, bson.M{})
}

// GetUser retrieves a single user by ID.
func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, notFound(err, "user "+id.Hex())
	}
	normalizeUser(&user)
	return user, nil
}

// GetUsersByIDs retrieves the users in ids, in id order, skipping missing ones.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	users, err := s.findUsers(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, users, func(u models.User) primitive.ObjectID { return u.ID }), nil
}

// FindUserByEmail retrieves the earliest user registered with email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := s.users.FindOne(ctx, bson.M{"email": email}, opts).Decode(&user); err != nil {
		return models.User{}, notFound(err, "user with email "+email)
	}
	normalizeUser(&user)
	return user, nil
}

// CreateUser inserts a new user, assigning its ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	normalizeUser(user)

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if isDuplicateName(err) {
			return fmt.Errorf("%w: %s", store.ErrDuplicateName, user.Name)
		}
		return err
	}
	return nil
}

// userUpdateDoc builds the $set document for a partial user update.
func userUpdateDoc(update models.UserUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if update.Name != nil {
		set["fname"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.DOB != nil {
		set["dob"] = *update.DOB
	}
	if update.PasswordHash != nil {
		set["password"] = *update.PasswordHash
	}
	return bson.M{"$set": set}
}

// UpdateUser applies the non-nil fields of update and returns the stored result.
func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error) {
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, userUpdateDoc(update, time.Now().UTC()), opts).Decode(&user)
	if err != nil {
		if isDuplicateName(err) {
			return models.User{}, fmt.Errorf("%w: %s", store.ErrDuplicateName, *update.Name)
		}
		return models.User{}, notFound(err, "user "+id.Hex())
	}
	normalizeUser(&user)
	return user, nil
}

// DeleteUser removes a user document. References to it elsewhere are left in place.
func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
	}
	return nil
}

// appendIfAbsent returns the filter and update that push value onto field
// only when it is not already present.
func appendIfAbsent(id primitive.ObjectID, field string, value any, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"_id": id, field: bson.M{"$ne": value}}
	update := bson.M{
		"$push": bson.M{field: value},
		"$set":  bson.M{"updatedAt": now},
	}
	return filter, update
}

// removeIfPresent returns the filter and update that pull every occurrence of
// value from field, matching only documents that contain it.
func removeIfPresent(id primitive.ObjectID, field string, value any, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"_id": id, field: value}
	update := bson.M{
		"$pull": bson.M{field: value},
		"$set":  bson.M{"updatedAt": now},
	}
	return filter, update
}

// conditionalUpdate runs a guarded update and distinguishes "guard not met"
// from "document missing".
func conditionalUpdate(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, what string, filter, update bson.M) (bool, error) {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, fmt.Errorf("%s %s: %w", what, id.Hex(), store.ErrNotFound)
	}
	return false, nil
}

// SavePin appends pinID to the user's saved pins unless it is already there.
func (s *Store) SavePin(ctx context.Context, userID, pinID primitive.ObjectID) (bool, error) {
	filter, update := appendIfAbsent(userID, "savedPins", pinID, time.Now().UTC())
	return conditionalUpdate(ctx, s.users, userID, "user", filter, update)
}

// ---- pins

func normalizePin(p *models.Pin) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
}

func (s *Store) findPins(ctx context.Context, filter any) ([]models.Pin, error) {
	cursor, err := s.pins.Find(ctx, filter, byIDAsc())
	if err != nil {
		return nil, err
	}
	pins := []models.Pin{}
	if err := cursor.All(ctx, &pins); err != nil {
		return nil, err
	}
	for i := range pins {
		normalizePin(&pins[i])
	}
	return pins, nil
}

// CreatePin inserts a new pin, assigning its ID and timestamps.
func (s *Store) CreatePin(ctx context.Context, pin *models.Pin) error {
	now := time.Now().UTC()
	if pin.ID.IsZero() {
		pin.ID = primitive.NewObjectID()
	}
	pin.CreatedAt, pin.UpdatedAt = now, now
	normalizePin(pin)

	_, err := s.pins.InsertOne(ctx, pin)
	return err
}

// GetPin retrieves a single pin by ID.
func (s *Store) GetPin(ctx context.Context, id primitive.ObjectID) (models.Pin, error) {
	var pin models.Pin
	if err := s.pins.FindOne(ctx, bson.M{"_id": id}).Decode(&pin); err != nil {
		return models.Pin{}, notFound(err, "pin "+id.Hex())
	}
	normalizePin(&pin)
	return pin, nil
}

// GetPinsByIDs retrieves the pins in ids, in id order, skipping missing ones.
func (s *Store) GetPinsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Pin, error) {
	if len(ids) == 0 {
		return []models.Pin{}, nil
	}
	pins, err := s.findPins(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, pins, func(p models.Pin) primitive.ObjectID { return p.ID }), nil
}

// FindPins retrieves the pins matching filter.
func (s *Store) FindPins(ctx context.Context, filter store.PinFilter) ([]models.Pin, error) {
	if filter.AnyTags != nil && len(filter.AnyTags) == 0 {
		return []models.Pin{}, nil
	}
	return s.findPins(ctx, pinQuery(filter))
}

// pinQuery translates a filter into a MongoDB query document.
func pinQuery(filter store.PinFilter) bson.M {
	query := bson.M{}
	if filter.AnyTags != nil {
		// An empty $in matches nothing.
		query["tags"] = bson.M{"$in": filter.AnyTags}
	}
	if !filter.ExcludeID.IsZero() {
		query["_id"] = bson.M{"$ne": filter.ExcludeID}
	}
	if filter.Keyword != "" {
		// The keyword is user input; quote it so it matches literally.
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Keyword), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"tags": filter.Keyword},
		}
	}
	return query
}

// AddLike appends userID to the pin's likes unless it is already there.
func (s *Store) AddLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error) {
	filter, update := appendIfAbsent(pinID, "likes", userID, time.Now().UTC())
	return conditionalUpdate(ctx, s.pins, pinID, "pin", filter, update)
}

// RemoveLike removes userID from the pin's likes.
func (s *Store) RemoveLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error) {
	filter, update := removeIfPresent(pinID, "likes", userID, time.Now().UTC())
	return conditionalUpdate(ctx, s.pins, pinID, "pin", filter, update)
}

// ---- comments

// CreateComment inserts the comment and then links it from its pin. When the
// link cannot be written the comment is deleted again; a crash in between
// leaves an orphan for RepairOrphanedComments.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if _, err := s.GetPin(ctx, comment.PinID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt, comment.UpdatedAt = now, now

	if _, err := s.comments.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return s.linkOrDiscard(ctx, comment, now)
}

// linkOrDiscard references an inserted comment from its pin, deleting the
// comment again when the pin cannot be updated.
func (s *Store) linkOrDiscard(ctx context.Context, comment *models.Comment, now time.Time) error {
	res, err := s.pins.UpdateOne(ctx, bson.M{"_id": comment.PinID}, linkCommentUpdate(comment.ID, now))
	if err == nil && res.MatchedCount == 0 {
		err = fmt.Errorf("pin %s: %w", comment.PinID.Hex(), store.ErrNotFound)
	}
	if err != nil {
		// Use a fresh context: the request context may be what failed.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, delErr := s.comments.DeleteOne(cleanupCtx, bson.M{"_id": comment.ID}); delErr != nil {
			log.Error().Err(delErr).Str("comment_id", comment.ID.Hex()).Msg("Failed to remove unlinked comment")
		}
		return err
	}
	return nil
}

func linkCommentUpdate(commentID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{
		"$addToSet": bson.M{"comments": commentID},
		"$set":      bson.M{"updatedAt": now},
	}
}

// GetCommentsByIDs retrieves the comments in ids, in id order, skipping missing ones.
func (s *Store) GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	cursor, err := s.comments.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, comments, func(c models.Comment) primitive.ObjectID { return c.ID }), nil
}

// orphan is one row of the orphan pipeline.
type orphan struct {
	ID        primitive.ObjectID `bson:"_id"`
	PinID     primitive.ObjectID `bson:"pinId"`
	PinExists bool               `bson:"pinExists"`
}

// orphanPipeline finds comments created before cutoff that their pin does not reference.
func orphanPipeline(cutoff time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$lt": cutoff}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         database.PinsCollection,
			"localField":   "pinId",
			"foreignField": "_id",
			"as":           "pin",
		}}},
		{{Key: "$project", Value: bson.M{
			"pinId":     1,
			"pinExists": bson.M{"$gt": bson.A{bson.M{"$size": "$pin"}, 0}},
			"linked": bson.M{"$in": bson.A{
				"$_id",
				bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$pin.comments", 0}}, bson.A{}}},
			}},
		}}},
		{{Key: "$match", Value: bson.M{"linked": false}}},
	}
}

// RepairOrphanedComments links unreferenced comments to their pin, or deletes
// them when the pin is gone.
func (s *Store) RepairOrphanedComments(ctx context.Context) (store.RepairReport, error) {
	var report store.RepairReport

	cursor, err := s.comments.Aggregate(ctx, orphanPipeline(time.Now().UTC().Add(-orphanGracePeriod)))
	if err != nil {
		return report, fmt.Errorf("find orphaned comments: %w", err)
	}
	var orphans []orphan
	if err := cursor.All(ctx, &orphans); err != nil {
		return report, err
	}

	for _, o := range orphans {
		if o.PinExists {
			if _, err := s.pins.UpdateOne(ctx, bson.M{"_id": o.PinID}, linkCommentUpdate(o.ID, time.Now().UTC())); err != nil {
				return report, fmt.Errorf("link comment %s: %w", o.ID.Hex(), err)
			}
			report.Linked++
			continue
		}
		if _, err := s.comments.DeleteOne(ctx, bson.M{"_id": o.ID}); err != nil {
			return report, fmt.Errorf("delete comment %s: %w", o.ID.Hex(), err)
		}
		report.Deleted++
	}
	return report, nil
}
