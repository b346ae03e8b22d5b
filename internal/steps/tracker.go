// Package steps converts a raw, resettable hardware step counter into an
// authoritative monotonic daily count and settles rewards against it.
//
// The math in this file is pure: it operates on Session values and returns
// new snapshots plus flags. All I/O lives in the Service.
package steps

import (
	"time"

	"github.com/pawsteps/stepcat/internal/domain/stats"
)

const (
	// DriftBuffer absorbs small negative sensor jitter before a low reading
	// is treated as a hardware counter reset.
	DriftBuffer = 100

	// SyncStepDelta / SyncInterval bound persistence frequency: flush when
	// the unsynced step delta or the elapsed time crosses either bound.
	SyncStepDelta = 250
	SyncInterval  = 20 * time.Minute
)

// Session is the process-local step tracking state for one calendar day.
// The durable subset (Date, HardwareBaseline, RewardCursor) is persisted so
// a restart resumes without reward loss or duplication.
type Session struct {
	Date             string // ISO-8601 day this session covers
	HardwareBaseline int64  // hardware counter value meaning 0 steps today
	TodaySteps       int64  // authoritative, monotonic within the day
	RewardCursor     int64  // steps already converted into rewards
	LastSyncedSteps  int64  // advisory, governs persistence cadence only
	LastSyncTime     time.Time
}

// Resume rebuilds a session from durable state after a process start.
// The baseline is derived from the live hardware value and the persisted
// daily total, NOT from any stored baseline: a reboot while the process was
// dead would have invalidated it. The triggering reading is consumed here
// and must not also be fed through Advance.
func Resume(v int64, t time.Time, persistedSteps, rewardCursor int64) Session {
	if persistedSteps < 0 {
		persistedSteps = 0
	}
	if rewardCursor < 0 {
		rewardCursor = 0
	}
	if rewardCursor > persistedSteps {
		rewardCursor = persistedSteps
	}
	return Session{
		Date:             stats.DateOf(t),
		HardwareBaseline: v - persistedSteps,
		TodaySteps:       persistedSteps,
		RewardCursor:     rewardCursor,
	}
}

// Outcome reports what a reading did to the session.
type Outcome struct {
	Session      Session
	Dropped      bool // clock moved backward; reading ignored entirely
	Rollover     bool // new calendar day began
	Recalibrated bool // hardware counter reset (reboot) detected
	ShouldSync   bool // persistence due now
}

// Advance processes one hardware reading against an established session.
func (s Session) Advance(v int64, t time.Time) Outcome {
	out := Outcome{Session: s}

	today := stats.DateOf(t)
	if today != s.Date {
		if today < s.Date {
			// Clock drift: never let a backward date corrupt the baseline.
			out.Dropped = true
			return out
		}
		// Genuine day rollover: fresh baseline, counters and cursor reset
		// together, persisted immediately.
		out.Session = Session{
			Date:             today,
			HardwareBaseline: v,
		}
		out.Rollover = true
		out.ShouldSync = true
		return out
	}

	if v < s.HardwareBaseline+s.TodaySteps-DriftBuffer {
		// The counter is impossibly low for the known baseline: the device
		// rebooted. Keep TodaySteps as ground truth and rebase.
		s.HardwareBaseline = v - s.TodaySteps
		out.Recalibrated = true
		out.ShouldSync = true
	}

	// Monotonic floor: transient backward jitter never decreases the count.
	if d := v - s.HardwareBaseline; d > s.TodaySteps {
		s.TodaySteps = d
	}

	if !out.ShouldSync {
		out.ShouldSync = s.syncDueAt(t)
	}
	out.Session = s
	return out
}

// syncDueAt reports whether the batching thresholds call for a flush.
func (s Session) syncDueAt(t time.Time) bool {
	if s.LastSyncTime.IsZero() {
		return true // first sync of the day
	}
	delta := s.TodaySteps - s.LastSyncedSteps
	if delta < 0 {
		delta = -delta
	}
	if delta >= SyncStepDelta {
		return true
	}
	return t.Sub(s.LastSyncTime) >= SyncInterval
}
