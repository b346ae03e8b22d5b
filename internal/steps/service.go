package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/domain/stats"
	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/platform/logger"
	"github.com/pawsteps/stepcat/internal/platform/metrics"
)

// Reading is one hardware counter event.
type Reading struct {
	Value int64
	At    time.Time
}

// Cursor is the durable subset of a session.
type Cursor struct {
	Date             string
	HardwareBaseline int64
	RewardCursor     int64
}

// SyncRecord is one atomic persistence commit: the daily-stats row, the
// cursor row, and the reward grant must land together or not at all, so a
// crash can never advance the cursor without the grant or vice versa.
type SyncRecord struct {
	Date             string
	Steps            int64
	CaloriesBurned   float64
	DistanceKm       float64
	HardwareBaseline int64
	RewardCursor     int64
	RewardUnits      int64
	GrantFoodPoints  int
	GrantXP          int
}

// Store is the durable contract the step service requires.
type Store interface {
	StepsForDate(ctx context.Context, date string) (int64, error)
	LoadCursor(ctx context.Context) (*Cursor, error)
	CommitSync(ctx context.Context, rec SyncRecord) error
}

// CatRepairer re-syncs the cat's cached level after the sync transaction
// writes XP directly in storage.
type CatRepairer interface {
	RepairLevel(ctx context.Context) (cat.State, error)
}

// ProgressSink is notified of new daily step totals (mission tracking).
type ProgressSink interface {
	StepsUpdated(ctx context.Context, date string, steps int64)
}

// Service owns the step pipeline: a non-blocking sensor entry point feeding
// a single worker goroutine that holds the session and performs all
// persistence serially. One worker = single-writer discipline on the daily
// row and the cursor; hardware events are processed strictly in arrival
// order.
type Service struct {
	store    Store
	careLog  *events.CareLog
	logger   *logger.Logger
	clock    func() time.Time
	repairer CatRepairer
	progress ProgressSink

	readings chan Reading

	mu          sync.RWMutex
	session     Session
	established bool
}

// NewService wires a step service. buffer sizes the pending-readings queue.
func NewService(store Store, careLog *events.CareLog, log *logger.Logger, buffer int) *Service {
	if buffer <= 0 {
		buffer = 128
	}
	return &Service{
		store:    store,
		careLog:  careLog,
		logger:   log,
		clock:    time.Now,
		readings: make(chan Reading, buffer),
	}
}

// SetCatRepairer attaches the level-repair hook.
func (s *Service) SetCatRepairer(r CatRepairer) {
	s.repairer = r
}

// SetProgressSink attaches the mission progress hook.
func (s *Service) SetProgressSink(p ProgressSink) {
	s.progress = p
}

// OnReading is the sensor entry point. It never blocks the event-delivery
// path: the reading is enqueued and processed by the worker. A full queue
// drops the reading (the hardware counter is cumulative, so the next
// reading carries the same information).
func (s *Service) OnReading(value int64, at time.Time) {
	select {
	case s.readings <- Reading{Value: value, At: at}:
	default:
		metrics.Get().RecordDroppedReading()
		s.logger.Warn("Reading queue full, dropping sensor event")
	}
}

// Run processes readings until the context is cancelled, then attempts one
// final best-effort flush. In-flight computations are discardable: durable
// state only moves in atomic commits.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("Step pipeline worker started.")
	for {
		select {
		case <-ctx.Done():
			s.finalFlush()
			s.logger.Info("Step pipeline worker stopped.")
			return
		case r := <-s.readings:
			s.handle(ctx, r)
		}
	}
}

// Snapshot returns the current session and whether a baseline is established.
func (s *Service) Snapshot() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.established
}

func (s *Service) setSession(sess Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

func (s *Service) handle(ctx context.Context, r Reading) {
	metrics.Get().RecordReading()

	if !s.established {
		s.establish(ctx, r)
		return
	}

	sess, _ := s.Snapshot()
	out := sess.Advance(r.Value, r.At)

	if out.Dropped {
		metrics.Get().RecordDroppedReading()
		s.logger.Warn(fmt.Sprintf("Reading dropped: date moved backward from %s", sess.Date))
		return
	}

	if out.Rollover && sess.TodaySteps > sess.LastSyncedSteps {
		// Close out the outgoing day before adopting the fresh session:
		// steps walked since its last flush, and their unpaid reward
		// units, must not vanish at midnight.
		s.sync(ctx, sess, r.At)
	}

	sess = out.Session

	if out.Rollover {
		metrics.Get().RecordRollover()
		s.record(events.EventTypeDayRollover, map[string]string{"date": sess.Date})
		s.logger.Event("DAY_ROLLOVER", "New day "+sess.Date+", counters and reward cursor reset")
	}
	if out.Recalibrated {
		metrics.Get().RecordRecalibration()
		s.record(events.EventTypeRebootRecalibrated, map[string]int64{
			"baseline": sess.HardwareBaseline,
			"steps":    sess.TodaySteps,
		})
		s.logger.Warn(fmt.Sprintf("Hardware counter reset detected, rebased to %d (steps preserved: %d)",
			sess.HardwareBaseline, sess.TodaySteps))
	}

	if out.ShouldSync {
		sess = s.sync(ctx, sess, r.At)
	}

	s.setSession(sess)
}

// establish reconciles the very first reading after process start against
// the durable daily row instead of trusting a synchronous default. The
// triggering reading is consumed here and not counted again.
func (s *Service) establish(ctx context.Context, r Reading) {
	date := stats.DateOf(r.At)

	persisted, err := s.store.StepsForDate(ctx, date)
	if err != nil {
		// Degrade rather than crash the pipeline: the live hardware value
		// becomes a fresh baseline and today restarts from zero.
		s.logger.Warn("Baseline reconciliation read failed, starting from zero: " + err.Error())
		persisted = 0
	}

	var rewardCursor int64
	if cur, err := s.store.LoadCursor(ctx); err != nil {
		s.logger.Warn("Reward cursor read failed, starting from zero: " + err.Error())
	} else if cur != nil && cur.Date == date {
		rewardCursor = cur.RewardCursor
	}

	sess := Resume(r.Value, r.At, persisted, rewardCursor)
	s.mu.Lock()
	s.session = sess
	s.established = true
	s.mu.Unlock()
	s.logger.Info(fmt.Sprintf("Step baseline established: hw=%d todaySteps=%d rewardCursor=%d",
		sess.HardwareBaseline, sess.TodaySteps, sess.RewardCursor))
}

// sync settles rewards and commits the batch atomically. On failure the
// in-memory sync markers stay put, so the next flush retries the same
// settlement against unchanged durable state.
func (s *Service) sync(ctx context.Context, sess Session, at time.Time) Session {
	settled := Settle(sess.TodaySteps, sess.RewardCursor)

	rec := SyncRecord{
		Date:             sess.Date,
		Steps:            sess.TodaySteps,
		CaloriesBurned:   stats.CaloriesFor(sess.TodaySteps),
		DistanceKm:       stats.DistanceKmFor(sess.TodaySteps),
		HardwareBaseline: sess.HardwareBaseline,
		RewardCursor:     settled.Cursor,
		RewardUnits:      settled.Units,
		GrantFoodPoints:  int(settled.Units) * RewardFoodPoints,
		GrantXP:          int(settled.Units) * RewardXP,
	}

	err := s.store.CommitSync(ctx, rec)
	metrics.Get().RecordSync(err)
	if err != nil {
		s.logger.Error("Step sync commit failed: " + err.Error())
		return sess
	}

	sess.RewardCursor = settled.Cursor
	sess.LastSyncedSteps = sess.TodaySteps
	sess.LastSyncTime = at

	if settled.Units > 0 {
		metrics.Get().RecordRewardUnits(settled.Units)
		s.record(events.EventTypeStepReward, events.StepRewardPayload{
			Units:      settled.Units,
			TodaySteps: sess.TodaySteps,
			Cursor:     sess.RewardCursor,
		})
		s.logger.Event("STEP_REWARD", fmt.Sprintf("%d unit(s) at %d steps, cursor now %d",
			settled.Units, sess.TodaySteps, sess.RewardCursor))

		if s.repairer != nil {
			if _, err := s.repairer.RepairLevel(ctx); err != nil {
				s.logger.Error("Level repair after step reward failed: " + err.Error())
			}
		}
	}

	if s.progress != nil {
		s.progress.StepsUpdated(ctx, sess.Date, sess.TodaySteps)
	}
	return sess
}

// finalFlush persists any unsynced progress on teardown, best effort.
func (s *Service) finalFlush() {
	sess, ok := s.Snapshot()
	if !ok || sess.TodaySteps == sess.LastSyncedSteps {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.setSession(s.sync(ctx, sess, s.clock()))
}

func (s *Service) record(eventType events.EventType, payload interface{}) {
	if s.careLog != nil {
		s.careLog.Record(eventType, payload)
	}
}
