// Package events provides the append-only care ledger for the cat.
// Every reward grant, interaction, and pipeline milestone is traceable here.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawsteps/stepcat/internal/platform/logger"
)

// EventType defines the category of a care event.
type EventType string

const (
	EventTypeCatCreated         EventType = "CAT_CREATED"
	EventTypeFed                EventType = "FED"
	EventTypePetted             EventType = "PETTED"
	EventTypeSleepStart         EventType = "SLEEP_START"
	EventTypeLevelUp            EventType = "LEVEL_UP"
	EventTypeStepReward         EventType = "STEP_REWARD"
	EventTypeDayRollover        EventType = "DAY_ROLLOVER"
	EventTypeRebootRecalibrated EventType = "REBOOT_RECALIBRATED"
	EventTypeWaterLogged        EventType = "WATER_LOGGED"
	EventTypeMissionCompleted   EventType = "MISSION_COMPLETED"
)

// StepRewardPayload records one settled reward batch.
type StepRewardPayload struct {
	Units      int64 `json:"units"`
	TodaySteps int64 `json:"today_steps"`
	Cursor     int64 `json:"cursor"`
}

// CareEvent represents an immutable record of something that happened to the cat.
type CareEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
}

// Persister defines how an event is durably stored.
type Persister interface {
	Append(event CareEvent) error
}

// persistQueueSize bounds the write-through backlog. Appends never block
// on storage; if the disk falls this far behind, entries are dropped with
// a warning rather than stalling the care path.
const persistQueueSize = 256

// CareLog is the in-memory append-only log of care events, with optional
// write-through to durable storage.
type CareLog struct {
	mu        sync.RWMutex
	events    []CareEvent
	persister Persister
	persistQ  chan CareEvent
	logger    *logger.Logger
}

// NewCareLog creates a new care log with an optional persister.
func NewCareLog(persister Persister) *CareLog {
	cl := &CareLog{
		events:    make([]CareEvent, 0),
		persister: persister,
		logger:    logger.NewLogger(),
	}
	if persister != nil {
		cl.persistQ = make(chan CareEvent, persistQueueSize)
		go cl.runPersist()
	}
	return cl
}

// runPersist drains the write-through queue on a single goroutine so the
// durable ledger keeps the in-memory append order.
func (cl *CareLog) runPersist() {
	for e := range cl.persistQ {
		if err := cl.persister.Append(e); err != nil {
			cl.logger.Error("Care event persist failed: " + err.Error())
		}
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (cl *CareLog) Append(event CareEvent) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.events = append(cl.events, event)

	// Enqueued under the same lock as the slice append, so the durable
	// ledger sees events in log order. The send never blocks.
	if cl.persistQ != nil {
		select {
		case cl.persistQ <- event:
		default:
			cl.logger.Warn("Care event persist queue full, dropping " + string(event.Type))
		}
	}
}

// Record builds and appends an event in one call.
func (cl *CareLog) Record(eventType EventType, payload interface{}) {
	cl.Append(CareEvent{
		ID:        NewEventID(),
		Timestamp: time.Now(),
		Type:      eventType,
		Payload:   payload,
	})
}

// Replay returns the full event history. Observers slice from their own
// cursor to pick up only new entries.
func (cl *CareLog) Replay() []CareEvent {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.events
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}
