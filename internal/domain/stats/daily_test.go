package stats

import (
	"math"
	"testing"
	"time"
)

func TestDateOfOrdersLexically(t *testing.T) {
	// The pipeline compares date keys as strings; the layout must order the
	// same way time does.
	a := DateOf(time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC))
	b := DateOf(time.Date(2026, 10, 1, 0, 1, 0, 0, time.UTC))
	if !(a < b) {
		t.Errorf("Expected %q < %q", a, b)
	}
}

func TestDerivedMetrics(t *testing.T) {
	if got := CaloriesFor(10000); math.Abs(got-400) > 1e-9 {
		t.Errorf("CaloriesFor(10000) = %v, want 400", got)
	}
	if got := DistanceKmFor(10000); math.Abs(got-7.62) > 1e-9 {
		t.Errorf("DistanceKmFor(10000) = %v, want 7.62", got)
	}
}
