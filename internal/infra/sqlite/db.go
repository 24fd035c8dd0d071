// Package sqlite provides SQLite-based persistent storage for WattQuest.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
// It implements domain.QuestStore and domain.ProfileStore.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// User standing: points, level, streaks, badge counters
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id          TEXT PRIMARY KEY,
			points           INTEGER NOT NULL DEFAULT 0,
			level            INTEGER NOT NULL DEFAULT 1,
			quests_completed INTEGER NOT NULL DEFAULT 0,
			current_streak   INTEGER NOT NULL DEFAULT 0,
			longest_streak   INTEGER NOT NULL DEFAULT 0,
			last_active_day  INTEGER,
			energy_saved_kwh REAL NOT NULL DEFAULT 0,
			social_helps     INTEGER NOT NULL DEFAULT 0,
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		)`,

		// Quest instances with full progress state
		`CREATE TABLE IF NOT EXISTS quests (
			id                  TEXT PRIMARY KEY,
			template_id         TEXT NOT NULL,
			user_id             TEXT NOT NULL,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL,
			objectives          TEXT NOT NULL,
			conditions          TEXT NOT NULL DEFAULT '[]',
			baseline            REAL NOT NULL,
			target              REAL NOT NULL,
			device_id           TEXT NOT NULL DEFAULT '',
			device_type         TEXT NOT NULL DEFAULT '',
			difficulty          TEXT NOT NULL,
			reward_points       INTEGER NOT NULL,
			status              TEXT NOT NULL,
			percentage          REAL NOT NULL DEFAULT 0,
			milestones          TEXT NOT NULL DEFAULT '[]',
			streak_days         INTEGER NOT NULL DEFAULT 0,
			qualifying_days     TEXT NOT NULL DEFAULT '[]',
			last_activity       INTEGER,
			created_at          INTEGER NOT NULL,
			started_at          INTEGER,
			valid_until         INTEGER NOT NULL,
			completed_at        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_user_status ON quests(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_valid_until ON quests(valid_until)`,

		// Unlocked badges and achievements
		`CREATE TABLE IF NOT EXISTS unlocks (
			user_id     TEXT NOT NULL,
			unlock_id   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, unlock_id)
		)`,

		// Points ledger. The unique award key makes reward application
		// idempotent across process restarts.
		`CREATE TABLE IF NOT EXISTS points_ledger (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			award_key  TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL,
			points     INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_user ON points_ledger(user_id)`,

		// Notification log (per-user daily cap, quiet hours)
		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			shown      BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
