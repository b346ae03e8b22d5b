package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/mission"
	"github.com/pawsteps/stepcat/internal/domain/stats"
	"github.com/pawsteps/stepcat/internal/steps"
)

// ---------------------------------------------------------
// SQLiteCatRepository
// ---------------------------------------------------------

// SQLiteCatRepository implements CatRepository for SQLite.
type SQLiteCatRepository struct {
	db *sql.DB
}

func NewSQLiteCatRepository(db *sql.DB) *SQLiteCatRepository {
	return &SQLiteCatRepository{db: db}
}

func (r *SQLiteCatRepository) GetCatState(ctx context.Context) (*cat.State, error) {
	query := `SELECT hunger, happiness, energy, xp, level, food_points, coins,
		is_sleeping, sleep_end_time, last_updated, last_interaction_time
		FROM cat_state WHERE cat_id = ?`

	var s cat.State
	err := r.db.QueryRowContext(ctx, query, CatID).Scan(
		&s.Hunger, &s.Happiness, &s.Energy, &s.XP, &s.Level, &s.FoodPoints, &s.Coins,
		&s.IsSleeping, &s.SleepEndTime, &s.LastUpdated, &s.LastInteractionTime,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cat state: %w", err)
	}
	return &s, nil
}

func (r *SQLiteCatRepository) UpsertCatState(ctx context.Context, s cat.State) error {
	query := `
		INSERT INTO cat_state (cat_id, hunger, happiness, energy, xp, level, food_points, coins,
			is_sleeping, sleep_end_time, last_updated, last_interaction_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cat_id) DO UPDATE SET
			hunger=excluded.hunger,
			happiness=excluded.happiness,
			energy=excluded.energy,
			xp=excluded.xp,
			level=excluded.level,
			food_points=excluded.food_points,
			coins=excluded.coins,
			is_sleeping=excluded.is_sleeping,
			sleep_end_time=excluded.sleep_end_time,
			last_updated=excluded.last_updated,
			last_interaction_time=excluded.last_interaction_time
	`
	_, err := r.db.ExecContext(ctx, query,
		CatID, s.Hunger, s.Happiness, s.Energy, s.XP, s.Level, s.FoodPoints, s.Coins,
		s.IsSleeping, s.SleepEndTime, s.LastUpdated, s.LastInteractionTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cat state: %w", err)
	}
	return nil
}

// ---------------------------------------------------------
// SQLiteDailyStatsRepository
// ---------------------------------------------------------

// SQLiteDailyStatsRepository implements DailyStatsRepository for SQLite.
type SQLiteDailyStatsRepository struct {
	db *sql.DB
}

func NewSQLiteDailyStatsRepository(db *sql.DB) *SQLiteDailyStatsRepository {
	return &SQLiteDailyStatsRepository{db: db}
}

func (r *SQLiteDailyStatsRepository) GetDailyStats(ctx context.Context, date string) (*stats.Daily, error) {
	query := `SELECT date, steps, calories_burned, water_ml, distance_km FROM daily_stats WHERE date = ?`

	var d stats.Daily
	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&d.Date, &d.Steps, &d.CaloriesBurned, &d.WaterMl, &d.DistanceKm,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read daily stats: %w", err)
	}
	return &d, nil
}

func (r *SQLiteDailyStatsRepository) UpsertDailyStats(ctx context.Context, d stats.Daily) error {
	// Steps are monotone within a date: a write carrying fewer steps than
	// the stored row must not regress the counters.
	query := `
		INSERT INTO daily_stats (date, steps, calories_burned, water_ml, distance_km)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			steps=excluded.steps,
			calories_burned=excluded.calories_burned,
			water_ml=excluded.water_ml,
			distance_km=excluded.distance_km
		WHERE excluded.steps >= daily_stats.steps
	`
	_, err := r.db.ExecContext(ctx, query, d.Date, d.Steps, d.CaloriesBurned, d.WaterMl, d.DistanceKm)
	if err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}
	return nil
}

func (r *SQLiteDailyStatsRepository) AddWater(ctx context.Context, date string, ml int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin water tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO daily_stats (date, water_ml) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET water_ml = daily_stats.water_ml + excluded.water_ml
	`
	if _, err := tx.ExecContext(ctx, query, date, ml); err != nil {
		return 0, fmt.Errorf("failed to add water: %w", err)
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT water_ml FROM daily_stats WHERE date = ?`, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read water total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit water tx: %w", err)
	}
	return total, nil
}

func (r *SQLiteDailyStatsRepository) GetRange(ctx context.Context, from, to string) ([]stats.Daily, error) {
	query := `SELECT date, steps, calories_burned, water_ml, distance_km
		FROM daily_stats WHERE date >= ? AND date <= ? ORDER BY date ASC`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats range: %w", err)
	}
	defer rows.Close()

	var result []stats.Daily
	for rows.Next() {
		var d stats.Daily
		if err := rows.Scan(&d.Date, &d.Steps, &d.CaloriesBurned, &d.WaterMl, &d.DistanceKm); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// ---------------------------------------------------------
// SQLiteStepRepository
// ---------------------------------------------------------

// SQLiteStepRepository implements StepRepository for SQLite.
type SQLiteStepRepository struct {
	db *sql.DB
}

func NewSQLiteStepRepository(db *sql.DB) *SQLiteStepRepository {
	return &SQLiteStepRepository{db: db}
}

func (r *SQLiteStepRepository) StepsForDate(ctx context.Context, date string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT steps FROM daily_stats WHERE date = ?`, date).Scan(&n)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read steps for %s: %w", date, err)
	}
	return n, nil
}

func (r *SQLiteStepRepository) LoadCursor(ctx context.Context) (*steps.Cursor, error) {
	query := `SELECT date, hardware_baseline, reward_cursor FROM step_cursor WHERE cursor_id = ?`

	var c steps.Cursor
	err := r.db.QueryRowContext(ctx, query, CursorID).Scan(&c.Date, &c.HardwareBaseline, &c.RewardCursor)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read step cursor: %w", err)
	}
	return &c, nil
}

// CommitSync applies one sync batch atomically. The reward grant is an
// in-place SQL increment (clamped at the food cap) rather than a
// read-modify-write, so it cannot interleave with reconciler writes.
func (r *SQLiteStepRepository) CommitSync(ctx context.Context, rec steps.SyncRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sync tx: %w", err)
	}
	defer tx.Rollback()

	statsQuery := `
		INSERT INTO daily_stats (date, steps, calories_burned, distance_km)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			steps=excluded.steps,
			calories_burned=excluded.calories_burned,
			distance_km=excluded.distance_km
		WHERE excluded.steps >= daily_stats.steps
	`
	if _, err := tx.ExecContext(ctx, statsQuery, rec.Date, rec.Steps, rec.CaloriesBurned, rec.DistanceKm); err != nil {
		return fmt.Errorf("failed to upsert daily steps: %w", err)
	}

	cursorQuery := `
		INSERT INTO step_cursor (cursor_id, date, hardware_baseline, reward_cursor)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cursor_id) DO UPDATE SET
			date=excluded.date,
			hardware_baseline=excluded.hardware_baseline,
			reward_cursor=excluded.reward_cursor
	`
	if _, err := tx.ExecContext(ctx, cursorQuery, CursorID, rec.Date, rec.HardwareBaseline, rec.RewardCursor); err != nil {
		return fmt.Errorf("failed to upsert step cursor: %w", err)
	}

	if rec.GrantFoodPoints > 0 || rec.GrantXP > 0 {
		grantQuery := `
			UPDATE cat_state SET
				xp = xp + ?,
				food_points = MIN(?, food_points + ?)
			WHERE cat_id = ?
		`
		if _, err := tx.ExecContext(ctx, grantQuery, rec.GrantXP, cat.MaxFoodPoints, rec.GrantFoodPoints, CatID); err != nil {
			return fmt.Errorf("failed to grant step reward: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync tx: %w", err)
	}
	return nil
}

// ---------------------------------------------------------
// SQLiteMissionRepository
// ---------------------------------------------------------

// SQLiteMissionRepository implements MissionRepository for SQLite.
type SQLiteMissionRepository struct {
	db *sql.DB
}

func NewSQLiteMissionRepository(db *sql.DB) *SQLiteMissionRepository {
	return &SQLiteMissionRepository{db: db}
}

func (r *SQLiteMissionRepository) MissionsForDate(ctx context.Context, date string) ([]mission.Mission, error) {
	query := `SELECT id, date, type, target_value, current_value, reward_coins, reward_xp, is_completed
		FROM missions WHERE date = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query missions: %w", err)
	}
	defer rows.Close()

	var result []mission.Mission
	for rows.Next() {
		var m mission.Mission
		if err := rows.Scan(&m.ID, &m.Date, &m.Type, &m.TargetValue, &m.CurrentValue,
			&m.RewardCoins, &m.RewardXP, &m.IsCompleted); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *SQLiteMissionRepository) UpsertMission(ctx context.Context, m mission.Mission) error {
	query := `
		INSERT INTO missions (id, date, type, target_value, current_value, reward_coins, reward_xp, is_completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_value=excluded.current_value,
			is_completed=excluded.is_completed
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Date, string(m.Type), m.TargetValue, m.CurrentValue, m.RewardCoins, m.RewardXP, m.IsCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mission: %w", err)
	}
	return nil
}

func (r *SQLiteMissionRepository) PurgeBefore(ctx context.Context, date string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM missions WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to purge missions: %w", err)
	}
	return res.RowsAffected()
}
