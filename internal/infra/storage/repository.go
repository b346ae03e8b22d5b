// Package storage provides the persistence layer for the stepcat server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/mission"
	"github.com/pawsteps/stepcat/internal/domain/stats"
	"github.com/pawsteps/stepcat/internal/steps"
)

// Singleton row keys. The cat and the step cursor exist once per install.
const (
	CatID    = "CAT_1"
	CursorID = "CURSOR_1"
)

// CatRepository persists the singleton cat state.
// The engine defines its own narrow view of this; both are satisfied by the
// SQLite implementation.
type CatRepository interface {
	// GetCatState returns the cat, or nil if it was never created.
	GetCatState(ctx context.Context) (*cat.State, error)

	// UpsertCatState writes the full snapshot.
	UpsertCatState(ctx context.Context, s cat.State) error
}

// DailyStatsRepository persists one row of activity totals per calendar date.
type DailyStatsRepository interface {
	// GetDailyStats returns the row for a date, or nil if absent.
	GetDailyStats(ctx context.Context, date string) (*stats.Daily, error)

	// UpsertDailyStats writes a row. Steps never regress within a date.
	UpsertDailyStats(ctx context.Context, d stats.Daily) error

	// AddWater increments the water counter and returns the new total.
	AddWater(ctx context.Context, date string, ml int) (int, error)

	// GetRange returns rows for dates in [from, to], for weekly/monthly
	// aggregates. Missing days simply have no row.
	GetRange(ctx context.Context, from, to string) ([]stats.Daily, error)
}

// StepRepository is the durable side of the step pipeline: daily steps,
// the reward cursor, and the atomic sync commit.
type StepRepository interface {
	StepsForDate(ctx context.Context, date string) (int64, error)
	LoadCursor(ctx context.Context) (*steps.Cursor, error)

	// CommitSync applies one step-sync batch in a single transaction:
	// daily row, cursor row, and cat reward grant land together or not
	// at all.
	CommitSync(ctx context.Context, rec steps.SyncRecord) error
}

// MissionRepository persists daily missions.
type MissionRepository interface {
	MissionsForDate(ctx context.Context, date string) ([]mission.Mission, error)
	UpsertMission(ctx context.Context, m mission.Mission) error

	// PurgeBefore deletes missions older than the cutoff date and reports
	// how many rows were removed.
	PurgeBefore(ctx context.Context, date string) (int64, error)
}
