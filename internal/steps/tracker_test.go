package steps

import (
	"testing"
	"time"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func establishedSession(t time.Time) Session {
	return Session{
		Date:             "2026-03-10",
		HardwareBaseline: 10000,
		TodaySteps:       500,
		RewardCursor:     500,
		LastSyncedSteps:  500,
		LastSyncTime:     t,
	}
}

func TestAdvanceAccumulates(t *testing.T) {
	s := establishedSession(at(10, 9, 0))

	out := s.Advance(10620, at(10, 9, 5))
	if out.Dropped || out.Rollover || out.Recalibrated {
		t.Errorf("Unexpected flags: %+v", out)
	}
	if out.Session.TodaySteps != 620 {
		t.Errorf("Expected 620 steps, got %d", out.Session.TodaySteps)
	}
}

func TestAdvanceMonotonicFloor(t *testing.T) {
	s := establishedSession(at(10, 9, 0))

	// Small backward jitter inside the drift buffer: count never decreases,
	// no recalibration.
	out := s.Advance(10450, at(10, 9, 5))
	if out.Recalibrated {
		t.Errorf("Jitter inside drift buffer treated as reboot")
	}
	if out.Session.TodaySteps != 500 {
		t.Errorf("Expected steps held at 500, got %d", out.Session.TodaySteps)
	}
	if out.Session.HardwareBaseline != 10000 {
		t.Errorf("Baseline must not move on jitter, got %d", out.Session.HardwareBaseline)
	}
}

func TestAdvanceRebootRecalibration(t *testing.T) {
	s := establishedSession(at(10, 9, 0))

	// Counter far below baseline+steps-buffer: the device rebooted.
	out := s.Advance(40, at(10, 9, 5))
	if !out.Recalibrated {
		t.Fatalf("Expected recalibration, got %+v", out)
	}
	if out.Session.TodaySteps != 500 {
		t.Errorf("Recalibration must preserve today's steps, got %d", out.Session.TodaySteps)
	}
	if out.Session.HardwareBaseline != 40-500 {
		t.Errorf("Expected rebased baseline %d, got %d", 40-500, out.Session.HardwareBaseline)
	}
	if !out.ShouldSync {
		t.Errorf("Recalibration must force an immediate sync")
	}

	// Steps counted after the reboot continue from the preserved total.
	out2 := out.Session.Advance(240, at(10, 9, 10))
	if out2.Session.TodaySteps != 700 {
		t.Errorf("Expected 700 steps after post-reboot walking, got %d", out2.Session.TodaySteps)
	}
}

func TestAdvanceRecalibrationBoundary(t *testing.T) {
	s := establishedSession(at(10, 9, 0))

	// Exactly baseline+steps-buffer is still jitter, one below is a reboot.
	edge := s.HardwareBaseline + s.TodaySteps - DriftBuffer
	if out := s.Advance(edge, at(10, 9, 5)); out.Recalibrated {
		t.Errorf("Reading at drift edge misread as reboot")
	}
	if out := s.Advance(edge-1, at(10, 9, 5)); !out.Recalibrated {
		t.Errorf("Reading below drift edge not detected as reboot")
	}
}

func TestAdvanceDayRollover(t *testing.T) {
	s := establishedSession(at(10, 23, 50))

	out := s.Advance(10700, at(11, 0, 5))
	if !out.Rollover {
		t.Fatalf("Expected rollover, got %+v", out)
	}
	if !out.ShouldSync {
		t.Errorf("Rollover must sync immediately")
	}
	sess := out.Session
	if sess.Date != "2026-03-11" {
		t.Errorf("Expected new date, got %s", sess.Date)
	}
	if sess.TodaySteps != 0 || sess.RewardCursor != 0 {
		t.Errorf("Expected counters reset, got steps=%d cursor=%d", sess.TodaySteps, sess.RewardCursor)
	}
	if sess.HardwareBaseline != 10700 {
		t.Errorf("Expected baseline at current reading, got %d", sess.HardwareBaseline)
	}
}

func TestAdvanceBackwardDateDropped(t *testing.T) {
	s := establishedSession(at(10, 0, 10))

	out := s.Advance(10900, at(9, 23, 55))
	if !out.Dropped {
		t.Fatalf("Expected backward-date reading dropped, got %+v", out)
	}
	if out.Session != s {
		t.Errorf("Dropped reading must leave the session untouched")
	}
}

func TestSyncThresholds(t *testing.T) {
	base := at(10, 9, 0)
	s := establishedSession(base)

	// 249 unsynced steps, 5 minutes elapsed: neither bound crossed.
	out := s.Advance(s.HardwareBaseline+s.TodaySteps+SyncStepDelta-1, base.Add(5*time.Minute))
	if out.ShouldSync {
		t.Errorf("Sync triggered below both thresholds")
	}

	// Crossing the step delta triggers.
	out = s.Advance(s.HardwareBaseline+s.TodaySteps+SyncStepDelta, base.Add(5*time.Minute))
	if !out.ShouldSync {
		t.Errorf("Sync not triggered at step delta")
	}

	// Crossing the interval triggers even with tiny progress.
	out = s.Advance(s.HardwareBaseline+s.TodaySteps+1, base.Add(SyncInterval))
	if !out.ShouldSync {
		t.Errorf("Sync not triggered at interval")
	}
}

func TestFirstSyncOfDay(t *testing.T) {
	s := establishedSession(at(10, 9, 0))
	s.LastSyncTime = time.Time{}

	out := s.Advance(s.HardwareBaseline+s.TodaySteps+1, at(10, 9, 1))
	if !out.ShouldSync {
		t.Errorf("First reading of a resumed session must sync")
	}
}

func TestResumeDerivesBaselineFromPersistedSteps(t *testing.T) {
	now := at(10, 9, 0)

	s := Resume(52340, now, 2340, 2300)
	if s.HardwareBaseline != 50000 {
		t.Errorf("Expected baseline 50000, got %d", s.HardwareBaseline)
	}
	if s.TodaySteps != 2340 {
		t.Errorf("Expected persisted steps restored, got %d", s.TodaySteps)
	}
	if s.RewardCursor != 2300 {
		t.Errorf("Expected reward cursor restored, got %d", s.RewardCursor)
	}
	if s.Date != "2026-03-10" {
		t.Errorf("Expected session date from clock, got %s", s.Date)
	}
}

func TestResumeClampsCursorToSteps(t *testing.T) {
	s := Resume(1000, at(10, 9, 0), 300, 900)
	if s.RewardCursor != 300 {
		t.Errorf("Cursor above steps must clamp, got %d", s.RewardCursor)
	}
}

func TestResumeAfterRebootWhileDown(t *testing.T) {
	// The hardware counter reset while the process was dead: the derived
	// baseline goes negative, which keeps the persisted total authoritative.
	s := Resume(50, at(10, 9, 0), 2340, 2300)
	if s.HardwareBaseline != 50-2340 {
		t.Errorf("Expected baseline %d, got %d", 50-2340, s.HardwareBaseline)
	}
	out := s.Advance(150, at(10, 9, 5))
	if out.Session.TodaySteps != 2440 {
		t.Errorf("Expected 2440 steps after 100 post-reboot steps, got %d", out.Session.TodaySteps)
	}
}
