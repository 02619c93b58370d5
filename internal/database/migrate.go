package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"go.uber.org/zap"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed   BOOLEAN NOT NULL DEFAULT FALSE,
		status      TEXT NOT NULL DEFAULT 'not-started',
		start_time  TIMESTAMPTZ,
		end_time    TIMESTAMPTZ,
		owner       TEXT NOT NULL DEFAULT '',
		updates     TEXT NOT NULL DEFAULT '[]',
		recurrence  TEXT,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_id_created_at ON tasks (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_id_start_time ON tasks (user_id, start_time)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name          TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL,
		updated_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		completed   BOOLEAN NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'not-started',
		start_time  TIMESTAMP,
		end_time    TIMESTAMP,
		owner       TEXT NOT NULL DEFAULT '',
		updates     TEXT NOT NULL DEFAULT '[]',
		recurrence  TEXT,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_id_created_at ON tasks (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS tasks_user_id_start_time ON tasks (user_id, start_time)`,
}

// Migrate creates the schema if it does not exist. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *DB, logger *zap.Logger) error {
	var stmts []string
	switch db.Dialect {
	case dialect.Postgres:
		stmts = postgresSchema
	case dialect.SQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("no schema for dialect %s", db.Dialect)
	}

	logger.Info("running migrations", zap.String("dialect", db.Dialect))
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	logger.Info("migrations completed")
	return nil
}
