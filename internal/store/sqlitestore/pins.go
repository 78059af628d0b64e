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

const pinColumns = "p.id, p.title, p.link, p.img_source, p.description, p.extras, p.allow_comment, p.created_at, p.updated_at"

// scanPin is a helper to scan a pin from a row or rows object.
func scanPin(scanner interface{ Scan(...any) error }) (models.Pin, error) {
	var pin models.Pin
	var id, created, updated string
	var link, desc, extras sql.NullString
	err := scanner.Scan(&id, &pin.Title, &link, &pin.ImgSource, &desc, &extras, &pin.AllowComment, &created, &updated)
	if err != nil {
		return models.Pin{}, err
	}

	// Assign values from nullable types
	pin.ID, _ = primitive.ObjectIDFromHex(id)
	pin.Link = link.String
	pin.Description = desc.String
	pin.Extras = extras.String
	pin.CreatedAt = parseTime(created)
	pin.UpdatedAt = parseTime(updated)
	return pin, nil
}

func (s *Store) queryPins(ctx context.Context, q querier, where string, args ...any) ([]models.Pin, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+pinColumns+" FROM pins p "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pins := []models.Pin{}
	for rows.Next() {
		pin, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pins, s.attachPinRefs(ctx, q, pins)
}

// attachPinRefs fills tags, likes and comment references for pins.
func (s *Store) attachPinRefs(ctx context.Context, q querier, pins []models.Pin) error {
	owners := make([]any, len(pins))
	for i, p := range pins {
		owners[i] = p.ID.Hex()
	}

	tags, err := loadRefs(ctx, q, "pin_tags", "pin_id", "tag", owners)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	likes, err := loadRefs(ctx, q, "pin_likes", "pin_id", "user_id", owners)
	if err != nil {
		return fmt.Errorf("load likes: %w", err)
	}
	comments, err := loadRefs(ctx, q, "pin_comments", "pin_id", "comment_id", owners)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}

	for i := range pins {
		key := pins[i].ID.Hex()
		pins[i].Tags = append([]string{}, tags[key]...)
		pins[i].Likes = parseIDs(likes[key])
		pins[i].Comments = parseIDs(comments[key])
	}
	return nil
}

// CreatePin inserts a new pin with its tags, assigning its ID and timestamps.
func (s *Store) CreatePin(ctx context.Context, pin *models.Pin) error {
	now := time.Now().UTC()
	if pin.ID.IsZero() {
		pin.ID = primitive.NewObjectID()
	}
	pin.CreatedAt, pin.UpdatedAt = now, now
	if pin.Tags == nil {
		pin.Tags = []string{}
	}
	if pin.Comments == nil {
		pin.Comments = []primitive.ObjectID{}
	}
	if pin.Likes == nil {
		pin.Likes = []primitive.ObjectID{}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pins(id, title, link, img_source, description, extras, allow_comment, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pin.ID.Hex(), pin.Title, pin.Link, pin.ImgSource, pin.Description, pin.Extras, pin.AllowComment,
			formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert pin: %w", err)
		}
		for _, tag := range pin.Tags {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO pin_tags(pin_id, tag) VALUES(?, ?)", pin.ID.Hex(), tag); err != nil {
				return fmt.Errorf("failed to insert tag: %w", err)
			}
		}
		for _, userID := range pin.Likes {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO pin_likes(pin_id, user_id) VALUES(?, ?)", pin.ID.Hex(), userID.Hex()); err != nil {
				return fmt.Errorf("failed to insert like: %w", err)
			}
		}
		return nil
	})
}

// GetPin retrieves a single pin by ID.
func (s *Store) GetPin(ctx context.Context, id primitive.ObjectID) (models.Pin, error) {
	pins, err := s.queryPins(ctx, s.db, "WHERE p.id = ?", id.Hex())
	if err != nil {
		return models.Pin{}, err
	}
	if len(pins) == 0 {
		return models.Pin{}, fmt.Errorf("pin %s: %w", id.Hex(), store.ErrNotFound)
	}
	return pins[0], nil
}

// GetPinsByIDs retrieves the pins in ids, in id order, skipping missing ones.
func (s *Store) GetPinsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Pin, error) {
	if len(ids) == 0 {
		return []models.Pin{}, nil
	}
	pins, err := s.queryPins(ctx, s.db, "WHERE p.id IN ("+placeholders(len(ids))+")", hexes(ids)...)
	if err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, pins, func(p models.Pin) primitive.ObjectID { return p.ID }), nil
}

// FindPins retrieves the pins matching filter in creation order.
func (s *Store) FindPins(ctx context.Context, filter store.PinFilter) ([]models.Pin, error) {
	if filter.AnyTags != nil && len(filter.AnyTags) == 0 {
		return []models.Pin{}, nil
	}
	where, args := pinWhere(filter)
	return s.queryPins(ctx, s.db, where+" ORDER BY p.rowid", args...)
}

// pinWhere translates a filter into a WHERE clause over pins aliased as p.
func pinWhere(filter store.PinFilter) (string, []any) {
	var conds []string
	var args []any

	if len(filter.AnyTags) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM pin_tags t WHERE t.pin_id = p.id AND t.tag IN ("+placeholders(len(filter.AnyTags))+"))")
		for _, tag := range filter.AnyTags {
			args = append(args, tag)
		}
	}
	if !filter.ExcludeID.IsZero() {
		conds = append(conds, "p.id != ?")
		args = append(args, filter.ExcludeID.Hex())
	}
	if filter.Keyword != "" {
		pattern := "%" + escapeLike(filter.Keyword) + "%"
		conds = append(conds, `(p.title LIKE ? ESCAPE '\' OR p.description LIKE ? ESCAPE '\' OR EXISTS (SELECT 1 FROM pin_tags t WHERE t.pin_id = p.id AND t.tag = ?))`)
		args = append(args, pattern, pattern, filter.Keyword)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// AddLike appends userID to the pin's likes unless it is already there.
func (s *Store) AddLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error) {
	return s.changeLike(ctx, pinID, "INSERT OR IGNORE INTO pin_likes(pin_id, user_id) VALUES(?, ?)", pinID.Hex(), userID.Hex())
}

// RemoveLike removes exactly userID from the pin's likes.
func (s *Store) RemoveLike(ctx context.Context, pinID, userID primitive.ObjectID) (bool, error) {
	return s.changeLike(ctx, pinID, "DELETE FROM pin_likes WHERE pin_id = ? AND user_id = ?", pinID.Hex(), userID.Hex())
}

func (s *Store) changeLike(ctx context.Context, pinID primitive.ObjectID, stmt string, args ...any) (bool, error) {
	var changed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "pins", pinID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		changed = n > 0
		if changed {
			_, err = tx.ExecContext(ctx, "UPDATE pins SET updated_at = ? WHERE id = ?", formatTime(time.Now()), pinID.Hex())
		}
		return err
	})
	return changed, err
}
