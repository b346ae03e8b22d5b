package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pawsteps/stepcat/internal/domain/cat"
	"github.com/pawsteps/stepcat/internal/events"
	"github.com/pawsteps/stepcat/internal/platform/logger"
	"github.com/pawsteps/stepcat/internal/platform/metrics"
)

// StalenessThreshold is the minimum elapsed time before a read triggers a
// decay run. Reads inside the window return the stored snapshot untouched;
// the gap is not lost, it stays accumulated in LastUpdated. The window
// bounds both write amplification from frequent reads and the rounding
// noise of applying integer decay too often.
const StalenessThreshold = 20 * time.Minute

// Interaction economics.
const (
	FeedCost         = 10 // food points consumed per feeding
	FeedHungerGain   = 30
	PetHappinessGain = 2
	MaxPetsPerHour   = 10
	MaxSleepDuration = 12 * time.Hour
	MinSleepDuration = 30 * time.Minute
)

// ErrNotEnoughFood is returned by Feed when the pantry is empty.
var ErrNotEnoughFood = errors.New("not enough food points")

// ErrInsufficientCoins is returned by SpendCoins when the balance is too low.
var ErrInsufficientCoins = errors.New("insufficient coins")

// ErrAlreadySleeping is returned by Sleep when a sleep period is active.
var ErrAlreadySleeping = errors.New("cat is already sleeping")

// CatStore is the persistence contract the reconciler requires.
type CatStore interface {
	GetCatState(ctx context.Context) (*cat.State, error)
	UpsertCatState(ctx context.Context, s cat.State) error
}

// Reconciler decides when to run the decay engine against persisted state
// and keeps the level/XP invariant intact. All cat mutations flow through
// it; an internal mutex enforces single-writer discipline on the singleton
// row so every mutation is a read-modify-write against the latest snapshot.
type Reconciler struct {
	store   CatStore
	careLog *events.CareLog
	logger  *logger.Logger
	clock   func() time.Time

	mu       sync.Mutex
	petHour  time.Time // start of the calendar hour the pet counter covers
	petCount int
}

// NewReconciler wires a reconciler to its store and care log.
func NewReconciler(store CatStore, careLog *events.CareLog, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		careLog: careLog,
		logger:  log,
		clock:   time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (r *Reconciler) SetClock(clock func() time.Time) {
	r.clock = clock
}

// GetCat returns the cat's current state, creating it lazily on first use
// and applying pending decay when the snapshot is stale.
func (r *Reconciler) GetCat(ctx context.Context) (cat.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCatLocked(ctx)
}

func (r *Reconciler) getCatLocked(ctx context.Context) (cat.State, error) {
	stored, err := r.store.GetCatState(ctx)
	if err != nil {
		return cat.State{}, fmt.Errorf("reading cat state: %w", err)
	}

	if stored == nil {
		fresh := cat.NewState(r.clock())
		if err := r.store.UpsertCatState(ctx, fresh); err != nil {
			return cat.State{}, fmt.Errorf("creating cat state: %w", err)
		}
		r.record(events.EventTypeCatCreated, nil)
		r.logger.Info("Created new cat with default stats")
		return fresh, nil
	}

	s := *stored

	// Opportunistic level repair: the threshold curve may have changed
	// between versions, leaving a stale cached level behind.
	if s.SyncLevel() {
		if err := r.store.UpsertCatState(ctx, s); err != nil {
			return cat.State{}, fmt.Errorf("repairing cat level: %w", err)
		}
		r.record(events.EventTypeLevelUp, map[string]int{"level": s.Level})
	}

	now := r.clock()
	if now.Sub(s.LastUpdated) <= StalenessThreshold {
		return s, nil
	}

	next := ApplyDecay(s, now)
	next.SyncLevel() // wake-bonus XP may cross a threshold

	if !decayChanged(s, next) {
		metrics.Get().RecordDecay(false)
		return s, nil
	}

	if err := r.store.UpsertCatState(ctx, next); err != nil {
		return cat.State{}, fmt.Errorf("persisting decayed cat state: %w", err)
	}
	metrics.Get().RecordDecay(true)
	return next, nil
}

// decayChanged reports whether a decay run produced a visible difference.
// Only the decay-governed fields count; LastUpdated alone is not worth a
// write (the elapsed gap carries over to the next run instead).
func decayChanged(before, after cat.State) bool {
	return before.Hunger != after.Hunger ||
		before.Energy != after.Energy ||
		before.Happiness != after.Happiness ||
		before.IsSleeping != after.IsSleeping
}

// MarkInteraction applies any pending decay, then unconditionally stamps the
// last-interaction time. The stamp is always written, threshold or not: it
// is a distinct write path from decay.
func (r *Reconciler) MarkInteraction(ctx context.Context) (cat.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getCatLocked(ctx)
	if err != nil {
		return cat.State{}, err
	}

	s.LastInteractionTime = r.clock()
	if err := r.store.UpsertCatState(ctx, s); err != nil {
		return cat.State{}, fmt.Errorf("stamping interaction time: %w", err)
	}
	return s, nil
}

// mutate runs fn against the latest persisted snapshot and writes the result
// back, keeping the level invariant. Mutators do not trigger decay; decay is
// a separate, explicit concern.
func (r *Reconciler) mutate(ctx context.Context, fn func(*cat.State) error) (cat.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutateLocked(ctx, fn)
}

func (r *Reconciler) mutateLocked(ctx context.Context, fn func(*cat.State) error) (cat.State, error) {
	stored, err := r.store.GetCatState(ctx)
	if err != nil {
		return cat.State{}, fmt.Errorf("reading cat state: %w", err)
	}

	var s cat.State
	if stored == nil {
		s = cat.NewState(r.clock())
	} else {
		s = *stored
	}

	prevLevel := s.Level
	if err := fn(&s); err != nil {
		return s, err
	}
	s.SyncLevel()

	if err := r.store.UpsertCatState(ctx, s); err != nil {
		return cat.State{}, fmt.Errorf("persisting cat state: %w", err)
	}

	if s.Level > prevLevel {
		r.record(events.EventTypeLevelUp, map[string]int{"level": s.Level})
		r.logger.Event("LEVEL_UP", fmt.Sprintf("Cat reached level %d", s.Level))
	}
	return s, nil
}

// Feed consumes food points to raise hunger. Feeding is itself a
// state-altering instant: it stamps LastUpdated so the decay clock resets,
// closing the decay-then-feed ordering exploit.
func (r *Reconciler) Feed(ctx context.Context) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		if s.FoodPoints < FeedCost {
			return ErrNotEnoughFood
		}
		s.FoodPoints -= FeedCost
		s.Hunger = cat.ClampStat(s.Hunger + FeedHungerGain)
		if now := r.clock(); now.After(s.LastUpdated) {
			s.LastUpdated = now
		}
		r.record(events.EventTypeFed, map[string]int{"hunger": s.Hunger})
		return nil
	})
}

// Pet is a rate-limited interaction: at most MaxPetsPerHour per calendar
// hour, counter reset when the hour changes. Returns whether the pet was
// accepted.
func (r *Reconciler) Pet(ctx context.Context) (bool, cat.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hour := r.clock().Truncate(time.Hour)
	if !hour.Equal(r.petHour) {
		r.petHour = hour
		r.petCount = 0
	}
	if r.petCount >= MaxPetsPerHour {
		s, err := r.getCatLocked(ctx)
		return false, s, err
	}

	s, err := r.mutateLocked(ctx, func(s *cat.State) error {
		s.Happiness = cat.ClampStat(s.Happiness + PetHappinessGain)
		r.record(events.EventTypePetted, map[string]int{"happiness": s.Happiness})
		return nil
	})
	if err != nil {
		// The slot is consumed only once the write lands, so a storage
		// hiccup does not cost the user an accepted pet.
		return false, s, err
	}
	r.petCount++
	return true, s, nil
}

// Sleep puts the cat to sleep for the given duration. Pending decay is
// applied first so the sleep segment starts from reconciled stats.
func (r *Reconciler) Sleep(ctx context.Context, d time.Duration) (cat.State, error) {
	if d < MinSleepDuration {
		d = MinSleepDuration
	}
	if d > MaxSleepDuration {
		d = MaxSleepDuration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.getCatLocked(ctx)
	if err != nil {
		return cat.State{}, err
	}
	if s.IsSleeping {
		return s, ErrAlreadySleeping
	}

	now := r.clock()
	s.IsSleeping = true
	s.SleepEndTime = now.Add(d)
	if now.After(s.LastUpdated) {
		s.LastUpdated = now
	}

	if err := r.store.UpsertCatState(ctx, s); err != nil {
		return cat.State{}, fmt.Errorf("persisting sleep state: %w", err)
	}
	r.record(events.EventTypeSleepStart, map[string]string{"until": s.SleepEndTime.Format(time.RFC3339)})
	return s, nil
}

// AddXP grants experience. XP never decreases; negative amounts are ignored.
func (r *Reconciler) AddXP(ctx context.Context, amount int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		if amount > 0 {
			s.XP += amount
		}
		return nil
	})
}

// AddFoodPoints grants food currency, clamped at the pantry cap.
func (r *Reconciler) AddFoodPoints(ctx context.Context, amount int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		s.FoodPoints = cat.ClampFoodPoints(s.FoodPoints + amount)
		return nil
	})
}

// AddCoins grants coins. Negative amounts are ignored; use SpendCoins.
func (r *Reconciler) AddCoins(ctx context.Context, amount int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		if amount > 0 {
			s.Coins += amount
		}
		return nil
	})
}

// SpendCoins deducts coins, failing rather than going negative.
func (r *Reconciler) SpendCoins(ctx context.Context, amount int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		if amount < 0 {
			return nil
		}
		if s.Coins < amount {
			return ErrInsufficientCoins
		}
		s.Coins -= amount
		return nil
	})
}

// UpdateHappiness applies a clamped happiness delta.
func (r *Reconciler) UpdateHappiness(ctx context.Context, delta int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		s.Happiness = cat.ClampStat(s.Happiness + delta)
		return nil
	})
}

// UpdateEnergy applies a clamped energy delta (interaction costs such as
// play mini-games).
func (r *Reconciler) UpdateEnergy(ctx context.Context, delta int) (cat.State, error) {
	return r.mutate(ctx, func(s *cat.State) error {
		s.Energy = cat.ClampStat(s.Energy + delta)
		return nil
	})
}

// RepairLevel re-syncs the cached level after out-of-band XP writes (the
// step-sync transaction updates XP directly in storage).
func (r *Reconciler) RepairLevel(ctx context.Context) (cat.State, error) {
	return r.mutate(ctx, func(*cat.State) error { return nil })
}

func (r *Reconciler) record(eventType events.EventType, payload interface{}) {
	if r.careLog != nil {
		r.careLog.Record(eventType, payload)
	}
}
