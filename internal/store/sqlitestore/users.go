package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userColumns = "id, fname, email, password_hash, dob, created_at, updated_at"

// scanUser is a helper to scan a user from a row or rows object.
func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	var id, created, updated string
	var dob sql.NullString
	if err := scanner.Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &dob, &created, &updated); err != nil {
		return models.User{}, err
	}
	user.ID, _ = primitive.ObjectIDFromHex(id)
	user.DOB = dob.String
	user.CreatedAt = parseTime(created)
	user.UpdatedAt = parseTime(updated)
	user.SavedPins = []primitive.ObjectID{}
	return user, nil
}

func (s *Store) queryUsers(ctx context.Context, where string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, s.attachSavedPins(ctx, users)
}

func (s *Store) attachSavedPins(ctx context.Context, users []models.User) error {
	owners := make([]any, len(users))
	for i, u := range users {
		owners[i] = u.ID.Hex()
	}
	refs, err := loadRefs(ctx, s.db, "user_saved_pins", "user_id", "pin_id", owners)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].SavedPins = parseIDs(refs[users[i].ID.Hex()])
	}
	return nil
}

// ListUsers retrieves all users in registration order.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.queryUsers(ctx, "ORDER BY rowid")
}

// GetUser retrieves a single user by ID.
func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	users, err := s.queryUsers(ctx, "WHERE id = ?", id.Hex())
	if err != nil {
		return models.User{}, err
	}
	if len(users) == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
	}
	return users[0], nil
}

// GetUsersByIDs retrieves the users in ids, in id order, skipping missing ones.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	users, err := s.queryUsers(ctx, "WHERE id IN ("+placeholders(len(ids))+")", hexes(ids)...)
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, users, func(u models.User) primitive.ObjectID { return u.ID }), nil
}

// FindUserByEmail retrieves the earliest user registered with email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	users, err := s.queryUsers(ctx, "WHERE email = ? ORDER BY rowid LIMIT 1", email)
	if err != nil {
		return models.User{}, err
	}
	if len(users) == 0 {
		return models.User{}, fmt.Errorf("user with email %s: %w", email, store.ErrNotFound)
	}
	return users[0], nil
}

// CreateUser inserts a new user, assigning its ID and timestamps.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt, user.UpdatedAt = now, now
	if user.SavedPins == nil {
		user.SavedPins = []primitive.ObjectID{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users(id, fname, email, password_hash, dob, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
			user.ID.Hex(), user.Name, user.Email, user.PasswordHash, user.DOB, formatTime(now), formatTime(now))
		if err != nil {
			if isDuplicateName(err) {
				return fmt.Errorf("%w: %s", store.ErrDuplicateName, user.Name)
			}
			return err
		}
		for _, pinID := range user.SavedPins {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO user_saved_pins(user_id, pin_id) VALUES(?, ?)", user.ID.Hex(), pinID.Hex()); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateUser applies the non-nil fields of update and returns the stored result.
func (s *Store) UpdateUser(ctx context.Context, id primitive.ObjectID, update models.UserUpdate) (models.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now())}
	if update.Name != nil {
		sets = append(sets, "fname = ?")
		args = append(args, *update.Name)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.DOB != nil {
		sets = append(sets, "dob = ?")
		args = append(args, *update.DOB)
	}
	if update.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *update.PasswordHash)
	}
	args = append(args, id.Hex())

	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if isDuplicateName(err) {
			return models.User{}, fmt.Errorf("%w: %s", store.ErrDuplicateName, *update.Name)
		}
		return models.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user and its saved-pin list. Likes it left on pins stay behind.
func (s *Store) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id.Hex())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM user_saved_pins WHERE user_id = ?", id.Hex())
		return err
	})
}

// SavePin appends pinID to the user's saved pins unless it is already there.
func (s *Store) SavePin(ctx context.Context, userID, pinID primitive.ObjectID) (bool, error) {
	var added bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "users", userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO user_saved_pins(user_id, pin_id) VALUES(?, ?)", userID.Hex(), pinID.Hex())
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		added = n > 0
		if added {
			_, err = tx.ExecContext(ctx, "UPDATE users SET updated_at = ? WHERE id = ?", formatTime(time.Now()), userID.Hex())
		}
		return err
	})
	return added, err
}

func exists(ctx context.Context, q querier, table string, id primitive.ObjectID) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id.Hex()).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), id.Hex(), store.ErrNotFound)
	}
	return err
}
