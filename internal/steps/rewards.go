package steps

// Reward economics: every full RewardThresholdSteps of daily progress earns
// one unit; a unit pays RewardFoodPoints and RewardXP (clamped downstream at
// the cat-state level).
const (
	RewardThresholdSteps = 100
	RewardFoodPoints     = 100
	RewardXP             = 100
)

// Settlement is the result of converting step progress into reward units.
type Settlement struct {
	Units  int64 // whole reward units earned by this settlement
	Cursor int64 // new reward cursor; always cursor_old + Units*threshold
}

// Settle computes how many reward units the gap between todaySteps and the
// cursor is worth. The cursor only ever advances in whole threshold
// multiples: the sub-threshold remainder stays in front of the cursor and is
// carried into the next settlement, never dropped and never double-counted.
// Regardless of how syncs are batched, the units granted over a day sum to
// floor(finalSteps/threshold).
func Settle(todaySteps, rewardCursor int64) Settlement {
	diff := todaySteps - rewardCursor
	if diff < RewardThresholdSteps {
		return Settlement{Units: 0, Cursor: rewardCursor}
	}
	units := diff / RewardThresholdSteps
	remainder := diff % RewardThresholdSteps
	return Settlement{
		Units:  units,
		Cursor: todaySteps - remainder,
	}
}
