package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, slot, seq, timestamp, sim_time_ms, event_type, actor_id, target_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Slot, event.Seq, event.Timestamp.UnixMilli(), event.SimTime.Milliseconds(),
		event.EventType, event.ActorID, event.TargetID, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, slot, seq, timestamp, sim_time_ms, event_type, actor_id, target_id, payload`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var payloadStr string
		var ts, sim int64
		err := rows.Scan(
			&e.ID, &e.Slot, &e.Seq, &ts, &sim, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr,
		)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		e.SimTime = time.Duration(sim) * time.Millisecond
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySlot(ctx context.Context, slot string) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? ORDER BY timestamp ASC, seq ASC`
	return r.getMany(ctx, query, slot)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, slot string, eventType string) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? AND event_type = ? ORDER BY timestamp ASC, seq ASC`
	return r.getMany(ctx, query, slot, eventType)
}

func (r *SQLiteEventRepository) Since(ctx context.Context, slot string, t time.Time) ([]StoredEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? AND timestamp > ? ORDER BY timestamp ASC, seq ASC`
	return r.getMany(ctx, query, slot, t.UnixMilli())
}

func (r *SQLiteEventRepository) Prune(ctx context.Context, slot string, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE slot = ? AND timestamp < ?`, slot, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Put(ctx context.Context, rec SaveRecord) error {
	query := `
		INSERT INTO saves (slot, data, version, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			data=excluded.data,
			version=excluded.version,
			saved_at=excluded.saved_at
	`
	_, err := r.db.ExecContext(ctx, query, rec.Slot, string(rec.Data), rec.Version, rec.SavedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write save slot %s: %w", rec.Slot, err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Get(ctx context.Context, slot string) (*SaveRecord, error) {
	query := `SELECT slot, data, version, saved_at FROM saves WHERE slot = ?`
	var rec SaveRecord
	var data string
	var savedAt int64
	err := r.db.QueryRowContext(ctx, query, slot).Scan(&rec.Slot, &data, &rec.Version, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.Data = []byte(data)
	rec.SavedAt = time.UnixMilli(savedAt)
	return &rec, nil
}

func (r *SQLiteSaveRepository) List(ctx context.Context) ([]SaveRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, version, saved_at FROM saves ORDER BY saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SaveRecord
	for rows.Next() {
		var rec SaveRecord
		var savedAt int64
		if err := rows.Scan(&rec.Slot, &rec.Version, &savedAt); err != nil {
			return nil, err
		}
		rec.SavedAt = time.UnixMilli(savedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	return err
}
