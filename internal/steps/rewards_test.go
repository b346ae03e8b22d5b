package steps

import "testing"

func TestSettleBelowThreshold(t *testing.T) {
	got := Settle(95, 0)
	if got.Units != 0 {
		t.Errorf("Expected 0 units below threshold, got %d", got.Units)
	}
	if got.Cursor != 0 {
		t.Errorf("Cursor must not move below threshold, got %d", got.Cursor)
	}
}

func TestSettleCarriesRemainder(t *testing.T) {
	got := Settle(210, 0)
	if got.Units != 2 {
		t.Errorf("Expected 2 units at 210 steps, got %d", got.Units)
	}
	if got.Cursor != 200 {
		t.Errorf("Expected cursor 200 (10-step remainder carried), got %d", got.Cursor)
	}

	// The carried remainder pays out once the next threshold is crossed.
	got = Settle(300, got.Cursor)
	if got.Units != 1 {
		t.Errorf("Expected 1 unit for the carried remainder, got %d", got.Units)
	}
	if got.Cursor != 300 {
		t.Errorf("Expected cursor 300, got %d", got.Cursor)
	}
}

func TestSettleCursorAlwaysWholeMultiples(t *testing.T) {
	s := Settle(1234, 0)
	if (s.Cursor-0)%RewardThresholdSteps != 0 {
		t.Errorf("Cursor advanced by a non-multiple: %d", s.Cursor)
	}
	if s.Units != 12 || s.Cursor != 1200 {
		t.Errorf("Expected 12 units cursor 1200, got %d / %d", s.Units, s.Cursor)
	}
}

func TestSettleTotalUnitsIndependentOfBatching(t *testing.T) {
	// However syncs are batched, total units must equal floor(final/100).
	final := int64(2847)
	batchings := [][]int64{
		{2847},
		{95, 210, 300, 1024, 2847},
		{1, 99, 100, 101, 2846, 2847},
		{500, 1000, 1500, 2000, 2500, 2847},
	}

	for _, checkpoints := range batchings {
		var cursor, total int64
		for _, steps := range checkpoints {
			s := Settle(steps, cursor)
			cursor = s.Cursor
			total += s.Units
		}
		if want := final / RewardThresholdSteps; total != want {
			t.Errorf("Batching %v granted %d units, want %d", checkpoints, total, want)
		}
	}
}

func TestSettleIdempotentAtCursor(t *testing.T) {
	s := Settle(500, 500)
	if s.Units != 0 || s.Cursor != 500 {
		t.Errorf("Settling at the cursor must be a no-op, got %+v", s)
	}
}
