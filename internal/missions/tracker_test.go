package missions

import (
	"context"
	"testing"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/mission"
	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/platform/logger"
)

// fakeMissionStore keeps missions in memory keyed by ID.
type fakeMissionStore struct {
	missions map[string]mission.Mission
}

func newFakeMissionStore() *fakeMissionStore {
	return &fakeMissionStore{missions: make(map[string]mission.Mission)}
}

func (f *fakeMissionStore) MissionsForDate(ctx context.Context, date string) ([]mission.Mission, error) {
	var out []mission.Mission
	for _, m := range f.missions {
		if m.Date == date {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMissionStore) UpsertMission(ctx context.Context, m mission.Mission) error {
	f.missions[m.ID] = m
	return nil
}

func (f *fakeMissionStore) PurgeBefore(ctx context.Context, date string) (int64, error) {
	var n int64
	for id, m := range f.missions {
		if m.Date < date {
			delete(f.missions, id)
			n++
		}
	}
	return n, nil
}

// fakeRewarder tallies payouts.
type fakeRewarder struct {
	coins int
	xp    int
}

func (f *fakeRewarder) AddCoins(ctx context.Context, amount int) (cat.State, error) {
	f.coins += amount
	return cat.State{}, nil
}

func (f *fakeRewarder) AddXP(ctx context.Context, amount int) (cat.State, error) {
	f.xp += amount
	return cat.State{}, nil
}

func newTestTracker(store *fakeMissionStore, rewarder *fakeRewarder) *Tracker {
	return NewTracker(store, rewarder, events.NewCareLog(nil), logger.NewLogger())
}

func TestEnsureDailyGeneratesOnce(t *testing.T) {
	store := newFakeMissionStore()
	tr := newTestTracker(store, &fakeRewarder{})
	ctx := context.Background()

	first, err := tr.EnsureDaily(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("EnsureDaily failed: %v", err)
	}
	if len(first) != len(dailyTemplates) {
		t.Fatalf("Expected %d missions, got %d", len(dailyTemplates), len(first))
	}

	second, err := tr.EnsureDaily(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("EnsureDaily failed: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("Second call regenerated missions: %d", len(second))
	}
	if len(store.missions) != len(dailyTemplates) {
		t.Errorf("Expected %d stored missions, got %d", len(dailyTemplates), len(store.missions))
	}
}

func TestMissionPaysExactlyOnce(t *testing.T) {
	store := newFakeMissionStore()
	rewarder := &fakeRewarder{}
	tr := newTestTracker(store, rewarder)
	ctx := context.Background()

	// Crossing the 3000-step target pays the first STEPS mission only.
	tr.StepsUpdated(ctx, "2026-03-10", 3200)
	if rewarder.coins != 50 || rewarder.xp != 100 {
		t.Errorf("Expected 50 coins / 100 xp, got %d / %d", rewarder.coins, rewarder.xp)
	}

	// Further progress below the next target pays nothing more.
	tr.StepsUpdated(ctx, "2026-03-10", 3500)
	if rewarder.coins != 50 {
		t.Errorf("Completed mission paid again: %d coins", rewarder.coins)
	}

	// Crossing the 8000-step target pays the second STEPS mission.
	tr.StepsUpdated(ctx, "2026-03-10", 8000)
	if rewarder.coins != 200 || rewarder.xp != 350 {
		t.Errorf("Expected 200 coins / 350 xp, got %d / %d", rewarder.coins, rewarder.xp)
	}
}

func TestWaterMissionIndependentOfSteps(t *testing.T) {
	store := newFakeMissionStore()
	rewarder := &fakeRewarder{}
	tr := newTestTracker(store, rewarder)
	ctx := context.Background()

	tr.WaterUpdated(ctx, "2026-03-10", 1500)
	if rewarder.coins != 40 || rewarder.xp != 80 {
		t.Errorf("Expected water payout 40 / 80, got %d / %d", rewarder.coins, rewarder.xp)
	}

	// Step progress must not touch water missions and vice versa.
	tr.StepsUpdated(ctx, "2026-03-10", 1500)
	if rewarder.coins != 40 {
		t.Errorf("Step progress paid a water mission: %d coins", rewarder.coins)
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	store := newFakeMissionStore()
	tr := newTestTracker(store, &fakeRewarder{})
	ctx := context.Background()

	tr.StepsUpdated(ctx, "2026-03-10", 2000)
	tr.StepsUpdated(ctx, "2026-03-10", 1200)

	ms, _ := store.MissionsForDate(ctx, "2026-03-10")
	for _, m := range ms {
		if m.Type == mission.TypeSteps && m.CurrentValue != 2000 {
			t.Errorf("Mission counter regressed to %d", m.CurrentValue)
		}
	}
}

func TestEnsureDailyPurgesStale(t *testing.T) {
	store := newFakeMissionStore()
	store.missions["old"] = mission.Mission{
		ID:   "old",
		Date: "2026-03-01",
		Type: mission.TypeSteps,
	}
	tr := newTestTracker(store, &fakeRewarder{})

	// 2026-03-01 is more than StaleAfterDays before 2026-03-10.
	if _, err := tr.EnsureDaily(context.Background(), "2026-03-10"); err != nil {
		t.Fatalf("EnsureDaily failed: %v", err)
	}
	if _, ok := store.missions["old"]; ok {
		t.Errorf("Stale mission survived the purge")
	}
}
