// Package database opens the relational store holding users and class rooms.
package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/projetogalileu/galileu/core"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  username      TEXT,
  email         TEXT,
  is_active     BOOLEAN NOT NULL DEFAULT 1,
  roles         TEXT NOT NULL DEFAULT '',
  password_hash BLOB NOT NULL,
  created_at    TIMESTAMP NOT NULL,
  updated_at    TIMESTAMP NOT NULL,
  last_login    TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (username) WHERE username <> '';
CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email) WHERE email <> '';

CREATE TABLE IF NOT EXISTS rooms (
  id         TEXT PRIMARY KEY,
  name       TEXT NOT NULL,
  code       TEXT NOT NULL UNIQUE,
  owner_id   TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_owner_idx ON rooms (owner_id);

CREATE TABLE IF NOT EXISTS room_questions (
  room_id     TEXT NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  question_id TEXT NOT NULL,
  PRIMARY KEY (room_id, position)
);
`

// Open connects to the sqlite database at conf.Database.DSN and waits for it to answer.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, conf.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
