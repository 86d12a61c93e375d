package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-tracker/internal/database"
)

// TrackEventRepository provides PostgreSQL-backed track event storage
type TrackEventRepository struct {
	pool *Pool
}

// NewTrackEventRepository creates a new PostgreSQL track event repository
func NewTrackEventRepository(pool *Pool) *TrackEventRepository {
	return &TrackEventRepository{pool: pool}
}

// SaveEvents stores events in a single transaction
func (r *TrackEventRepository) SaveEvents(ctx context.Context, events []database.TrackEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_events (session_id, frame, track_id, kind, x, y, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.SessionID, e.Frame, e.TrackID, string(e.Kind), e.X, e.Y, e.At); err != nil {
			return fmt.Errorf("insert track event %d: %w", e.TrackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit track events: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events of a session, newest first
func (r *TrackEventRepository) ListEvents(ctx context.Context, sessionID string, limit int) ([]database.TrackEvent, error) {
	query := `
		SELECT session_id, frame, track_id, kind, x, y, created_at
		FROM track_events
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list track events: %w", err)
	}
	defer rows.Close()

	var events []database.TrackEvent
	for rows.Next() {
		var e database.TrackEvent
		var kind string
		if err := rows.Scan(&e.SessionID, &e.Frame, &e.TrackID, &kind, &e.X, &e.Y, &e.At); err != nil {
			return nil, fmt.Errorf("scan track event: %w", err)
		}
		e.Kind = database.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track events: %w", err)
	}
	return events, nil
}

// CountDistinctTracks returns how many distinct track ids were registered in a session
func (r *TrackEventRepository) CountDistinctTracks(ctx context.Context, sessionID string) (int, error) {
	query := `
		SELECT COUNT(DISTINCT track_id)
		FROM track_events
		WHERE session_id = $1 AND kind = $2
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, sessionID, string(database.EventRegistered)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct tracks: %w", err)
	}
	return count, nil
}

var _ database.TrackEventStore = (*TrackEventRepository)(nil)
