// Package cat defines the core domain entity for the virtual cat.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package cat

import "time"

// Stat bounds and economy caps.
const (
	MinStat       = 0
	MaxStat       = 100
	MaxFoodPoints = 150

	// Default mid-range values for a freshly created cat.
	DefaultHunger     = 70
	DefaultHappiness  = 70
	DefaultEnergy     = 70
	DefaultFoodPoints = 50
)

// State represents the full persisted state of the cat.
// It is a value type: engines operate on copies and return new snapshots.
type State struct {
	Hunger     int `json:"hunger"`      // 0-100 (0 = starving)
	Happiness  int `json:"happiness"`   // 0-100
	Energy     int `json:"energy"`      // 0-100
	XP         int `json:"xp"`          // never decreases
	Level      int `json:"level"`       // denormalized view of XP
	FoodPoints int `json:"food_points"` // 0-150, hard cap against hoarding
	Coins      int `json:"coins"`       // >= 0

	IsSleeping   bool      `json:"is_sleeping"`
	SleepEndTime time.Time `json:"sleep_end_time"` // meaningful only while sleeping

	// LastUpdated is the simulation clock: the instant decay has been applied
	// up to. It never moves backward.
	LastUpdated time.Time `json:"last_updated"`

	// LastInteractionTime is advisory (last app-open), not decay-authoritative.
	LastInteractionTime time.Time `json:"last_interaction_time"`
}

// NewState creates a fresh cat with default mid-range stats.
func NewState(now time.Time) State {
	return State{
		Hunger:              DefaultHunger,
		Happiness:           DefaultHappiness,
		Energy:              DefaultEnergy,
		XP:                  0,
		Level:               1,
		FoodPoints:          DefaultFoodPoints,
		Coins:               0,
		IsSleeping:          false,
		LastUpdated:         now,
		LastInteractionTime: now,
	}
}

// ClampStat bounds a vital stat into [0,100].
func ClampStat(v int) int {
	if v < MinStat {
		return MinStat
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}

// ClampFoodPoints bounds food points into [0,150].
func ClampFoodPoints(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxFoodPoints {
		return MaxFoodPoints
	}
	return v
}

// XPForLevel returns the XP threshold at which the given level begins.
// Strictly increasing; level 1 starts at 0.
//
// Not invertible in closed form on purpose: callers must resolve levels by
// walking upward (see SyncLevel), which stays correct if the curve is ever
// adjusted between versions.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return 50 * n * (n + 1) // 100, 300, 600, 1000, ...
}

// SyncLevel re-derives Level from XP by walking up from the current level.
// Returns true if the level changed. This repairs stale levels left behind
// by threshold-curve changes between app versions.
func (s *State) SyncLevel() bool {
	changed := false
	if s.Level < 1 {
		s.Level = 1
		changed = true
	}
	for s.XP >= XPForLevel(s.Level+1) {
		s.Level++
		changed = true
	}
	return changed
}
