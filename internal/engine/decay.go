package engine

import (
	"math"
	"time"

	"github.com/pawsteps/stepcat/internal/domain/cat"
)

// Per-hour decay and recovery rates, split by regime.
const (
	HungerRateSleeping = 3.0
	HungerRateAwake    = 5.0

	EnergyRateSleeping = 34.0
	// Energy does not drain passively while awake: it only moves through
	// explicit interaction costs. Product rule, preserved as stated.

	HappinessSleepBase     = 2.0
	HappinessSleepHungry   = -5.0  // resulting hunger < 30
	HappinessSleepStarving = -10.0 // resulting hunger < 10

	HappinessAwakeBase    = -6.0
	HappinessAwakeContent = 2.0  // resulting hunger > 80 AND energy > 80
	HappinessAwakePenalty = -4.0 // on top of base when hunger < 20 OR energy < 20

	// WakeBonusXP is awarded exactly once when a sleep period completes.
	WakeBonusXP = 20
)

// ApplyDecay computes the cat's state at the target instant by simulating
// the elapsed interval in sleeping/awake segments. A sleep period ending
// inside the interval is split exactly at SleepEndTime, with the wake bonus
// awarded at the boundary.
//
// Deterministic and idempotent: calling it again with the same target time
// is a no-op, since LastUpdated lands on the target. Time never moves
// backward; a target at or before LastUpdated returns the state unchanged.
func ApplyDecay(s cat.State, now time.Time) cat.State {
	if !now.After(s.LastUpdated) {
		return s
	}

	if s.IsSleeping {
		if now.Before(s.SleepEndTime) {
			return decaySegment(s, now, true)
		}

		// Sleep ends inside the interval: sleeping segment up to the
		// boundary, wake bonus once, then awake for the remainder.
		woken := decaySegment(s, s.SleepEndTime, true)
		woken.IsSleeping = false
		woken.XP += WakeBonusXP

		if !now.After(woken.LastUpdated) {
			return woken
		}
		return decaySegment(woken, now, false)
	}

	return decaySegment(s, now, false)
}

// decaySegment advances one uniform-regime segment from s.LastUpdated to end.
// Deltas are rounded half-up per segment and clamped per stat. A segment of
// zero or negative length leaves the state untouched (LastUpdated is never
// moved backward).
func decaySegment(s cat.State, end time.Time, sleeping bool) cat.State {
	hours := end.Sub(s.LastUpdated).Hours()
	if hours <= 0 {
		return s
	}

	hunger := s.Hunger
	energy := s.Energy
	if sleeping {
		hunger = cat.ClampStat(hunger - roundHalfUp(hours*HungerRateSleeping))
		energy = cat.ClampStat(energy + roundHalfUp(hours*EnergyRateSleeping))
	} else {
		hunger = cat.ClampStat(hunger - roundHalfUp(hours*HungerRateAwake))
	}

	// Happiness rates key off the segment's RESULTING hunger/energy.
	rate := happinessRate(sleeping, hunger, energy)
	happiness := cat.ClampStat(s.Happiness + roundHalfUp(hours*rate))

	s.Hunger = hunger
	s.Energy = energy
	s.Happiness = happiness
	s.LastUpdated = end
	return s
}

// happinessRate selects the per-hour happiness rate for a segment.
// Comparisons are strict on purpose: hunger exactly 30 or 80 does not
// trigger the adjacent band.
func happinessRate(sleeping bool, hunger, energy int) float64 {
	if sleeping {
		switch {
		case hunger < 10:
			return HappinessSleepStarving
		case hunger < 30:
			return HappinessSleepHungry
		default:
			return HappinessSleepBase
		}
	}

	// Good-state override takes priority over the critical penalty.
	if hunger > 80 && energy > 80 {
		return HappinessAwakeContent
	}
	rate := HappinessAwakeBase
	if hunger < 20 || energy < 20 {
		rate += HappinessAwakePenalty
	}
	return rate
}

// roundHalfUp rounds to the nearest integer, halves toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
