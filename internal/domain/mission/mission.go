// Package mission defines daily wellness missions and their payout rules.
// This package is PURE and must NOT import any infrastructure packages.
package mission

// Type identifies what counter a mission tracks.
type Type string

const (
	TypeSteps Type = "STEPS"
	TypeWater Type = "WATER"
)

// StaleAfterDays is how long completed or abandoned missions are retained
// before the daily purge removes them.
const StaleAfterDays = 7

// Mission is one daily goal. Once IsCompleted flips true the reward has been
// paid exactly once and further counter movement must not pay again.
type Mission struct {
	ID           string `json:"id"`
	Date         string `json:"date"` // ISO-8601, the day this mission belongs to
	Type         Type   `json:"type"`
	TargetValue  int64  `json:"target_value"`
	CurrentValue int64  `json:"current_value"`
	RewardCoins  int    `json:"reward_coins"`
	RewardXP     int    `json:"reward_xp"`
	IsCompleted  bool   `json:"is_completed"`
}

// Progress applies a new counter value (absolute, not a delta) and reports
// whether the mission just crossed its target. Counters never regress.
func (m *Mission) Progress(value int64) (justCompleted bool) {
	if value > m.CurrentValue {
		m.CurrentValue = value
	}
	if m.IsCompleted {
		return false
	}
	if m.CurrentValue >= m.TargetValue {
		m.IsCompleted = true
		return true
	}
	return false
}
