package engine

import (
	"testing"
	"time"

	"github.com/pawsteps/stepcat/internal/domain/cat"
)

func baseCat(t0 time.Time) cat.State {
	s := cat.NewState(t0)
	s.Hunger = 50
	s.Happiness = 70
	s.Energy = 70
	return s
}

func TestDecaySleepWakeSplit(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(2 * time.Hour)

	// Three hours pass: two sleeping, one awake after the boundary.
	got := ApplyDecay(s, t0.Add(3*time.Hour))

	// Sleeping 2h: hunger 50-6=44, then awake 1h: 44-5=39.
	if got.Hunger != 39 {
		t.Errorf("Expected hunger 39 after split decay, got %d", got.Hunger)
	}
	// Energy recovers while sleeping and clamps at 100; frozen awake.
	if got.Energy != 100 {
		t.Errorf("Expected energy 100, got %d", got.Energy)
	}
	// Happiness: +4 over the sleep segment, -6 over the awake hour.
	if got.Happiness != 68 {
		t.Errorf("Expected happiness 68, got %d", got.Happiness)
	}
	if got.IsSleeping {
		t.Errorf("Expected cat awake after SleepEndTime")
	}
	if got.XP != WakeBonusXP {
		t.Errorf("Expected wake bonus %d XP, got %d", WakeBonusXP, got.XP)
	}
	if !got.LastUpdated.Equal(t0.Add(3 * time.Hour)) {
		t.Errorf("Expected LastUpdated at target instant, got %v", got.LastUpdated)
	}
}

func TestDecayIdempotent(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(time.Hour)

	now := t0.Add(4 * time.Hour)
	once := ApplyDecay(s, now)
	twice := ApplyDecay(once, now)

	if once != twice {
		t.Errorf("Second decay at same instant changed state:\n once=%+v\ntwice=%+v", once, twice)
	}
}

func TestDecayNeverSimulatesBackward(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)

	got := ApplyDecay(s, t0.Add(-time.Hour))
	if got != s {
		t.Errorf("Backward target mutated state: %+v", got)
	}

	got = ApplyDecay(s, t0)
	if got != s {
		t.Errorf("Zero-length target mutated state: %+v", got)
	}
}

func TestDecaySplitEquivalence(t *testing.T) {
	// Decaying to the sleep boundary and then onward must equal one decay
	// across it: the boundary split is exact, not an approximation.
	t0 := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(90 * time.Minute)
	end := t0.Add(4 * time.Hour)

	direct := ApplyDecay(s, end)
	stepped := ApplyDecay(ApplyDecay(s, s.SleepEndTime), end)

	if direct != stepped {
		t.Errorf("Split decay diverged:\ndirect=%+v\nstepped=%+v", direct, stepped)
	}
}

func TestDecayWakeBonusAwardedOnce(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(time.Hour)

	first := ApplyDecay(s, t0.Add(2*time.Hour))
	second := ApplyDecay(first, t0.Add(5*time.Hour))

	if first.XP != WakeBonusXP {
		t.Errorf("Expected one wake bonus, got XP %d", first.XP)
	}
	if second.XP != WakeBonusXP {
		t.Errorf("Wake bonus awarded again on later decay: XP %d", second.XP)
	}
}

func TestDecayExactlyAtBoundary(t *testing.T) {
	// Decaying precisely to SleepEndTime wakes the cat and pays the bonus;
	// the awake segment is empty.
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(time.Hour)

	got := ApplyDecay(s, s.SleepEndTime)
	if got.IsSleeping {
		t.Errorf("Expected cat awake exactly at SleepEndTime")
	}
	if got.XP != WakeBonusXP {
		t.Errorf("Expected wake bonus at boundary, got XP %d", got.XP)
	}
	if got.Hunger != 47 {
		t.Errorf("Expected hunger 47 after 1h sleep, got %d", got.Hunger)
	}
}

func TestHappinessBandsAwake(t *testing.T) {
	cases := []struct {
		name           string
		hunger, energy int
		wantRate       float64
	}{
		{"content above both thresholds", 90, 90, HappinessAwakeContent},
		{"hunger exactly 80 is not content", 80, 90, HappinessAwakeBase},
		{"energy exactly 80 is not content", 90, 80, HappinessAwakeBase},
		{"critical hunger", 19, 50, HappinessAwakeBase + HappinessAwakePenalty},
		{"critical energy", 50, 19, HappinessAwakeBase + HappinessAwakePenalty},
		{"hunger exactly 20 is not critical", 20, 50, HappinessAwakeBase},
		{"midrange", 50, 50, HappinessAwakeBase},
	}
	for _, tc := range cases {
		if got := happinessRate(false, tc.hunger, tc.energy); got != tc.wantRate {
			t.Errorf("%s: happinessRate(false, %d, %d) = %v, want %v",
				tc.name, tc.hunger, tc.energy, got, tc.wantRate)
		}
	}
}

func TestHappinessBandsSleeping(t *testing.T) {
	cases := []struct {
		name     string
		hunger   int
		wantRate float64
	}{
		{"starving", 9, HappinessSleepStarving},
		{"hunger exactly 10 is hungry band", 10, HappinessSleepHungry},
		{"hungry", 29, HappinessSleepHungry},
		{"hunger exactly 30 is base band", 30, HappinessSleepBase},
		{"content", 70, HappinessSleepBase},
	}
	for _, tc := range cases {
		if got := happinessRate(true, tc.hunger, 0); got != tc.wantRate {
			t.Errorf("%s: happinessRate(true, %d, _) = %v, want %v",
				tc.name, tc.hunger, got, tc.wantRate)
		}
	}
}

func TestDecayClampsAtBounds(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.Hunger = 3
	s.Happiness = 5

	got := ApplyDecay(s, t0.Add(10*time.Hour))
	if got.Hunger != 0 {
		t.Errorf("Expected hunger clamped at 0, got %d", got.Hunger)
	}
	if got.Happiness != 0 {
		t.Errorf("Expected happiness clamped at 0, got %d", got.Happiness)
	}
	if got.Energy != s.Energy {
		t.Errorf("Expected awake energy frozen at %d, got %d", s.Energy, got.Energy)
	}
}

func TestDecayRoundsHalfUp(t *testing.T) {
	// 30 minutes sleeping: hunger delta 1.5 rounds to 2.
	t0 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	s := baseCat(t0)
	s.IsSleeping = true
	s.SleepEndTime = t0.Add(8 * time.Hour)

	got := ApplyDecay(s, t0.Add(30*time.Minute))
	if got.Hunger != 48 {
		t.Errorf("Expected hunger 48 (1.5 rounded up to 2), got %d", got.Hunger)
	}
	// Energy delta 17.0 exactly.
	if got.Energy != 87 {
		t.Errorf("Expected energy 87, got %d", got.Energy)
	}
}
