package database

import (
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so running at every boot is safe.
func Migrate(db *sql.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"circles", `
			CREATE TABLE IF NOT EXISTS circles (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				created_by TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`},
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				primary_circle_id BIGINT REFERENCES circles(id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`},
		{"user_circles", `
			CREATE TABLE IF NOT EXISTS user_circles (
				id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL,
				circle_id BIGINT NOT NULL REFERENCES circles(id),
				status TEXT NOT NULL DEFAULT 'active',
				joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				left_at TIMESTAMPTZ,
				UNIQUE (user_id, circle_id)
			)`},
		{"events", `
			CREATE TABLE IF NOT EXISTS events (
				id BIGSERIAL PRIMARY KEY,
				circle_id BIGINT NOT NULL REFERENCES circles(id),
				event_name TEXT NOT NULL,
				organizer_id TEXT NOT NULL,
				total_amount BIGINT NOT NULL,
				split_amount BIGINT NOT NULL,
				status TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`},
		{"event_participants", `
			CREATE TABLE IF NOT EXISTS event_participants (
				id BIGSERIAL PRIMARY KEY,
				event_id BIGINT NOT NULL REFERENCES events(id),
				user_id TEXT NOT NULL,
				user_name TEXT NOT NULL,
				reported BOOLEAN NOT NULL DEFAULT FALSE,
				reported_at TIMESTAMPTZ,
				approved_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (event_id, user_id)
			)`},
		{"indexes", `
			CREATE INDEX IF NOT EXISTS idx_user_circles_user ON user_circles(user_id);
			CREATE INDEX IF NOT EXISTS idx_user_circles_circle ON user_circles(circle_id);
			CREATE INDEX IF NOT EXISTS idx_events_organizer ON events(organizer_id);
			CREATE INDEX IF NOT EXISTS idx_events_circle ON events(circle_id);
			CREATE INDEX IF NOT EXISTS idx_participants_event ON event_participants(event_id);
			CREATE INDEX IF NOT EXISTS idx_participants_user ON event_participants(user_id)`},
	}

	for _, s := range statements {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}

	return nil
}
