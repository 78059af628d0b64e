package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/isdelr/pinboard-be/internal/models"
	"github.com/isdelr/pinboard-be/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateComment inserts the comment and links it from its pin in one transaction.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	now := time.Now().UTC()
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt, comment.UpdatedAt = now, now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, "pins", comment.PinID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO comments(id, pin_id, username, comment_text, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)",
			comment.ID.Hex(), comment.PinID.Hex(), comment.Username, comment.CommentText, formatTime(now), formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO pin_comments(pin_id, comment_id) VALUES(?, ?)", comment.PinID.Hex(), comment.ID.Hex())
		if err != nil {
			return fmt.Errorf("failed to link comment: %w", err)
		}
		_, err = tx.ExecContext(ctx, "UPDATE pins SET updated_at = ? WHERE id = ?", formatTime(now), comment.PinID.Hex())
		return err
	})
}

// GetCommentsByIDs retrieves the comments in ids, in id order, skipping missing ones.
func (s *Store) GetCommentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	if len(ids) == 0 {
		return []models.Comment{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, pin_id, username, comment_text, created_at, updated_at FROM comments WHERE id IN ("+placeholders(len(ids))+")",
		hexes(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		var id, pinID, created, updated string
		if err := rows.Scan(&id, &pinID, &c.Username, &c.CommentText, &created, &updated); err != nil {
			return nil, err
		}
		c.ID, _ = primitive.ObjectIDFromHex(id)
		c.PinID, _ = primitive.ObjectIDFromHex(pinID)
		c.CreatedAt = parseTime(created)
		c.UpdatedAt = parseTime(updated)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.OrderByIDs(ids, comments, func(c models.Comment) primitive.ObjectID { return c.ID }), nil
}

// RepairOrphanedComments links unreferenced comments to their pin, or deletes
// them when the pin is gone.
func (s *Store) RepairOrphanedComments(ctx context.Context) (store.RepairReport, error) {
	var report store.RepairReport
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO pin_comments(pin_id, comment_id)
			SELECT c.pin_id, c.id FROM comments c
			WHERE EXISTS (SELECT 1 FROM pins p WHERE p.id = c.pin_id)
			  AND NOT EXISTS (SELECT 1 FROM pin_comments pc WHERE pc.comment_id = c.id)
			ORDER BY c.created_at`)
		if err != nil {
			return fmt.Errorf("link orphaned comments: %w", err)
		}
		linked, _ := res.RowsAffected()

		res, err = tx.ExecContext(ctx, `
			DELETE FROM comments
			WHERE NOT EXISTS (SELECT 1 FROM pins p WHERE p.id = comments.pin_id)
			  AND NOT EXISTS (SELECT 1 FROM pin_comments pc WHERE pc.comment_id = comments.id)`)
		if err != nil {
			return fmt.Errorf("delete orphaned comments: %w", err)
		}
		deleted, _ := res.RowsAffected()

		report = store.RepairReport{Linked: int(linked), Deleted: int(deleted)}
		return nil
	})
	return report, err
}
