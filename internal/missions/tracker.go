// Package missions derives daily mission completion from the step and water
// counters and pays rewards exactly once per mission.
package missions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/mission"
	"github.com/pawsteps/stepcat/internal/domain/stats"
	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/platform/logger"
)

// CatRewarder pays out mission rewards through the cat reconciler.
type CatRewarder interface {
	AddCoins(ctx context.Context, amount int) (cat.State, error)
	AddXP(ctx context.Context, amount int) (cat.State, error)
}

// Store is the persistence contract for missions.
type Store interface {
	MissionsForDate(ctx context.Context, date string) ([]mission.Mission, error)
	UpsertMission(ctx context.Context, m mission.Mission) error
	PurgeBefore(ctx context.Context, date string) (int64, error)
}

// template describes one mission regenerated every day.
type template struct {
	Type        mission.Type
	TargetValue int64
	RewardCoins int
	RewardXP    int
}

var dailyTemplates = []template{
	{Type: mission.TypeSteps, TargetValue: 3000, RewardCoins: 50, RewardXP: 100},
	{Type: mission.TypeSteps, TargetValue: 8000, RewardCoins: 150, RewardXP: 250},
	{Type: mission.TypeWater, TargetValue: 1500, RewardCoins: 40, RewardXP: 80},
}

// Tracker regenerates missions daily, tracks progress, and pays rewards.
// A single mutex serializes all mission reads and writes: progress arrives
// concurrently from the step pipeline and the water path, and generation
// plus payout are both check-then-act sequences.
type Tracker struct {
	store    Store
	rewarder CatRewarder
	careLog  *events.CareLog
	logger   *logger.Logger

	mu sync.Mutex
}

// NewTracker wires a mission tracker.
func NewTracker(store Store, rewarder CatRewarder, careLog *events.CareLog, log *logger.Logger) *Tracker {
	return &Tracker{
		store:    store,
		rewarder: rewarder,
		careLog:  careLog,
		logger:   log,
	}
}

// EnsureDaily returns the missions for the given date, generating the daily
// set on first access and purging rows older than the retention window.
func (t *Tracker) EnsureDaily(ctx context.Context, date string) ([]mission.Mission, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureDailyLocked(ctx, date)
}

func (t *Tracker) ensureDailyLocked(ctx context.Context, date string) ([]mission.Mission, error) {
	existing, err := t.store.MissionsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading missions for %s: %w", date, err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	generated := make([]mission.Mission, 0, len(dailyTemplates))
	for _, tpl := range dailyTemplates {
		m := mission.Mission{
			ID:          uuid.NewString(),
			Date:        date,
			Type:        tpl.Type,
			TargetValue: tpl.TargetValue,
			RewardCoins: tpl.RewardCoins,
			RewardXP:    tpl.RewardXP,
		}
		if err := t.store.UpsertMission(ctx, m); err != nil {
			return nil, fmt.Errorf("creating mission: %w", err)
		}
		generated = append(generated, m)
	}
	t.logger.Info(fmt.Sprintf("Generated %d missions for %s", len(generated), date))

	t.purgeStale(ctx, date)
	return generated, nil
}

func (t *Tracker) purgeStale(ctx context.Context, date string) {
	day, err := time.Parse(stats.DateLayout, date)
	if err != nil {
		return
	}
	cutoff := stats.DateOf(day.AddDate(0, 0, -mission.StaleAfterDays))
	n, err := t.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		t.logger.Warn("Mission purge failed: " + err.Error())
		return
	}
	if n > 0 {
		t.logger.Info(fmt.Sprintf("Purged %d stale missions before %s", n, cutoff))
	}
}

// StepsUpdated feeds a new daily step total into STEPS missions.
// Implements the step service's progress sink.
func (t *Tracker) StepsUpdated(ctx context.Context, date string, steps int64) {
	if err := t.applyProgress(ctx, date, mission.TypeSteps, steps); err != nil {
		t.logger.Error("Step mission progress failed: " + err.Error())
	}
}

// WaterUpdated feeds a new daily water total (ml) into WATER missions.
func (t *Tracker) WaterUpdated(ctx context.Context, date string, waterMl int64) {
	if err := t.applyProgress(ctx, date, mission.TypeWater, waterMl); err != nil {
		t.logger.Error("Water mission progress failed: " + err.Error())
	}
}

// applyProgress applies an absolute counter value to all missions of the
// given type. The IsCompleted latch guarantees a mission pays at most once;
// the flag is persisted before the payout so a crash can never pay twice.
func (t *Tracker) applyProgress(ctx context.Context, date string, typ mission.Type, value int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ms, err := t.ensureDailyLocked(ctx, date)
	if err != nil {
		return err
	}

	for i := range ms {
		m := &ms[i]
		if m.Type != typ {
			continue
		}
		justCompleted := m.Progress(value)
		if err := t.store.UpsertMission(ctx, *m); err != nil {
			return fmt.Errorf("persisting mission progress: %w", err)
		}
		if !justCompleted {
			continue
		}
		if err := t.payout(ctx, *m); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) payout(ctx context.Context, m mission.Mission) error {
	if _, err := t.rewarder.AddCoins(ctx, m.RewardCoins); err != nil {
		return fmt.Errorf("paying mission coins: %w", err)
	}
	if _, err := t.rewarder.AddXP(ctx, m.RewardXP); err != nil {
		return fmt.Errorf("paying mission xp: %w", err)
	}
	if t.careLog != nil {
		t.careLog.Record(events.EventTypeMissionCompleted, map[string]interface{}{
			"id":     m.ID,
			"type":   string(m.Type),
			"target": m.TargetValue,
		})
	}
	t.logger.Event("MISSION_COMPLETED", fmt.Sprintf("%s %d -> %d coins, %d xp",
		m.Type, m.TargetValue, m.RewardCoins, m.RewardXP))
	return nil
}
