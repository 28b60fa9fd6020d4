package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
)

// EventFilter narrows index queries. Zero fields match everything.
type EventFilter struct {
	TaskID     string
	MissionID  string
	Type       events.EventType
	AfterTime  time.Time
	BeforeTime time.Time
	Limit      int
}

// IndexEvent inserts one event into the index. Re-indexing the same
// event is a no-op, which makes rebuilds from the log idempotent.
func (s *Store) IndexEvent(ctx context.Context, event *events.Event) error {
	payloadJSON := []byte("{}")
	if event.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for event %s: %w", event.ID, err)
		}
	}

	query := `
		INSERT INTO events (id, task_id, timestamp, type, mode, stage, mission_id, parent_event_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.TaskID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Type),
		string(event.Mode),
		string(event.Stage),
		event.MissionID(),
		event.ParentEventID,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to index event %s (type=%s): %w", event.ID, event.Type, err)
	}
	return nil
}

// GetEvents retrieves events matching the filter, oldest first.
func (s *Store) GetEvents(ctx context.Context, filter EventFilter) ([]*events.Event, error) {
	query := `
		SELECT id, task_id, timestamp, type, mode, stage, parent_event_id, payload
		FROM events
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.TaskID != "" {
		query += " AND task_id = ?"
		args = append(args, filter.TaskID)
	}
	if filter.MissionID != "" {
		query += " AND mission_id = ?"
		args = append(args, filter.MissionID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if !filter.AfterTime.IsZero() {
		query += " AND timestamp > ?"
		args = append(args, filter.AfterTime.UTC().Format(time.RFC3339Nano))
	}
	if !filter.BeforeTime.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, filter.BeforeTime.UTC().Format(time.RFC3339Nano))
	}

	query += " ORDER BY timestamp ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event index: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetEventsByTask retrieves all events for a task in append order.
func (s *Store) GetEventsByTask(ctx context.Context, taskID string) ([]*events.Event, error) {
	return s.GetEvents(ctx, EventFilter{TaskID: taskID})
}

// GetRecentEvents retrieves the most recent events across all tasks,
// newest first.
func (s *Store) GetRecentEvents(ctx context.Context, limit int) ([]*events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, task_id, timestamp, type, mode, stage, parent_event_id, payload
		FROM events
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Rebuild replaces the index contents with the given events. Used when
// the index is missing or suspected stale relative to the log.
func (s *Store) Rebuild(ctx context.Context, all []*events.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("failed to clear event index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index clear: %w", err)
	}
	for _, ev := range all {
		if err := s.IndexEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*events.Event, error) {
	var out []*events.Event
	for rows.Next() {
		var (
			ev          events.Event
			ts          string
			evType      string
			mode, stage string
			parent      sql.NullString
			payloadJSON string
		)
		if err := rows.Scan(&ev.ID, &ev.TaskID, &ts, &evType, &mode, &stage, &parent, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		// Re-decode through the envelope so the payload comes back as
		// its concrete type, same as replay from the log.
		wire := fmt.Sprintf(`{"id":%s,"task_id":%s,"timestamp":%s,"type":%s,"mode":%s,"stage":%s,"payload":%s}`,
			mustJSON(ev.ID), mustJSON(ev.TaskID), mustJSON(ts), mustJSON(evType), mustJSON(mode), mustJSON(stage), payloadJSON)
		var decoded events.Event
		if err := json.Unmarshal([]byte(wire), &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode indexed event %s: %w", ev.ID, err)
		}
		if parent.Valid {
			decoded.ParentEventID = parent.String
		}
		out = append(out, &decoded)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return out, nil
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
