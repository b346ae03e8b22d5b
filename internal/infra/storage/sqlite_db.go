package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InitSQLite initializes the local SQLite database and creates the schemas
// for the cat state, daily stats, step tracking cursor, missions, and the
// care-event ledger.
func InitSQLite(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := createSchemas(db); err != nil {
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}

	return db, nil
}

func createSchemas(db *sql.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS cat_state (
			cat_id TEXT PRIMARY KEY,
			hunger INTEGER NOT NULL,
			happiness INTEGER NOT NULL,
			energy INTEGER NOT NULL,
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			food_points INTEGER NOT NULL DEFAULT 0,
			coins INTEGER NOT NULL DEFAULT 0,
			is_sleeping BOOLEAN NOT NULL DEFAULT 0,
			sleep_end_time DATETIME NOT NULL,
			last_updated DATETIME NOT NULL,
			last_interaction_time DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			date TEXT PRIMARY KEY,
			steps INTEGER NOT NULL DEFAULT 0,
			calories_burned REAL NOT NULL DEFAULT 0,
			water_ml INTEGER NOT NULL DEFAULT 0,
			distance_km REAL NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS step_cursor (
			cursor_id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			hardware_baseline INTEGER NOT NULL,
			reward_cursor INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			type TEXT NOT NULL,
			target_value INTEGER NOT NULL,
			current_value INTEGER NOT NULL DEFAULT 0,
			reward_coins INTEGER NOT NULL,
			reward_xp INTEGER NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_missions_date ON missions(date);`,
		`CREATE TABLE IF NOT EXISTS care_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_care_events_type ON care_events(event_type);`,
	}

	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
