package cat

import (
	"testing"
	"time"
)

func TestClampStat(t *testing.T) {
	cases := []struct{ in, want int }{
		{-5, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{140, 100},
	}
	for _, tc := range cases {
		if got := ClampStat(tc.in); got != tc.want {
			t.Errorf("ClampStat(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestClampFoodPoints(t *testing.T) {
	if got := ClampFoodPoints(200); got != MaxFoodPoints {
		t.Errorf("Expected food points capped at %d, got %d", MaxFoodPoints, got)
	}
	if got := ClampFoodPoints(-10); got != 0 {
		t.Errorf("Expected food points floored at 0, got %d", got)
	}
}

func TestXPForLevelStrictlyIncreasing(t *testing.T) {
	if XPForLevel(1) != 0 {
		t.Errorf("Level 1 must start at 0 XP, got %d", XPForLevel(1))
	}
	if XPForLevel(0) != 0 || XPForLevel(-3) != 0 {
		t.Errorf("Levels below 1 must map to 0 XP")
	}
	for level := 1; level < 50; level++ {
		if XPForLevel(level+1) <= XPForLevel(level) {
			t.Fatalf("Curve not strictly increasing at level %d: %d -> %d",
				level, XPForLevel(level), XPForLevel(level+1))
		}
	}
}

func TestSyncLevel(t *testing.T) {
	s := NewState(time.Now())

	s.XP = 99
	if s.SyncLevel() {
		t.Errorf("Level changed below the first threshold")
	}

	s.XP = 100
	if !s.SyncLevel() || s.Level != 2 {
		t.Errorf("Expected level 2 at 100 XP, got %d", s.Level)
	}

	// Multi-level jump resolves in one sync.
	s.XP = 650
	if !s.SyncLevel() || s.Level != 4 {
		t.Errorf("Expected level 4 at 650 XP, got %d", s.Level)
	}

	// Invariant holds: XPForLevel(Level) <= XP < XPForLevel(Level+1).
	if XPForLevel(s.Level) > s.XP || s.XP >= XPForLevel(s.Level+1) {
		t.Errorf("Level invariant broken: level %d at %d XP", s.Level, s.XP)
	}
}

func TestSyncLevelRepairsInvalidLevel(t *testing.T) {
	s := NewState(time.Now())
	s.Level = 0
	if !s.SyncLevel() || s.Level != 1 {
		t.Errorf("Expected level repaired to 1, got %d", s.Level)
	}
}
