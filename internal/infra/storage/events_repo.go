package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pawsteps/stepcat/internal/events"
)

// SQLiteCareEventRepository persists the care-event ledger.
// It satisfies events.Persister for write-through from the in-memory log.
type SQLiteCareEventRepository struct {
	db *sql.DB
}

func NewSQLiteCareEventRepository(db *sql.DB) *SQLiteCareEventRepository {
	return &SQLiteCareEventRepository{db: db}
}

// Append adds one event to the durable ledger.
func (r *SQLiteCareEventRepository) Append(event events.CareEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO care_events (id, timestamp, event_type, payload) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(context.Background(), query,
		event.ID, event.Timestamp, string(event.Type), string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append care event: %w", err)
	}
	return nil
}

// StoredEvent is one row read back from the ledger.
type StoredEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Payload   string    `json:"payload"`
}

// GetRecent returns the latest events, newest first.
func (r *SQLiteCareEventRepository) GetRecent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, timestamp, event_type, payload FROM care_events ORDER BY timestamp DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query care events: %w", err)
	}
	defer rows.Close()

	var result []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Payload); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
