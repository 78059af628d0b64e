package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite" // SQLite driver
)

// Collection names used by the MongoDB backend.
const (
	UsersCollection    = "users"
	PinsCollection     = "pins"
	CommentsCollection = "comments"
)

// NewSQLite opens the SQLite database at path and verifies the connection.
func NewSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateSQLite runs the SQL statements to set up the database schema.
func MigrateSQLite(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		fname TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		dob TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS user_saved_pins (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		pin_id TEXT NOT NULL,
		UNIQUE(user_id, pin_id)
	);

	CREATE TABLE IF NOT EXISTS pins (
		id TEXT NOT NULL PRIMARY KEY,
		title TEXT NOT NULL,
		link TEXT,
		img_source TEXT NOT NULL,
		description TEXT,
		extras TEXT,
		allow_comment INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pin_tags (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		pin_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		UNIQUE(pin_id, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_pin_tags_tag ON pin_tags(tag);

	CREATE TABLE IF NOT EXISTS pin_likes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		pin_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		UNIQUE(pin_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS pin_comments (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		pin_id TEXT NOT NULL,
		comment_id TEXT NOT NULL,
		UNIQUE(pin_id, comment_id)
	);

	-- Comments are linked from pins through pin_comments.
	CREATE TABLE IF NOT EXISTS comments (
		id TEXT NOT NULL PRIMARY KEY,
		pin_id TEXT NOT NULL,
		username TEXT NOT NULL,
		comment_text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// NewMongo connects to MongoDB and verifies the connection.
func NewMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	// Check connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureMongoIndexes creates the indexes the application relies on. The unique
// index on fname is what turns a taken display name into a duplicate-key error.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fname", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = db.Collection(PinsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tags", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("pins indexes: %w", err)
	}

	_, err = db.Collection(CommentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pinId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("comments indexes: %w", err)
	}
	return nil
}
