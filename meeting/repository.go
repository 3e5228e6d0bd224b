package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store owns the canonical meeting records.
type Store interface {
	Create(ctx context.Context, m Meeting) (Meeting, error)
	Get(ctx context.Context, id string) (Meeting, error)
	ListForUser(ctx context.Context, userID string) ([]Meeting, error)
	ListEnded(ctx context.Context, status Status, endedBy time.Time, limit int) ([]Meeting, error)
	// Update persists m's mutable fields only if the stored version still equals
	// expectedVersion and the stored status is not terminal. It returns
	// ErrConflict otherwise.
	Update(ctx context.Context, m Meeting, expectedVersion int64) (Meeting, error)
}

// PGRepository implements Store backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed meeting store.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const meetingColumns = `id, creator_id, participant_id, scheduled_start, scheduled_end, status::text, message, version, created_at, updated_at`

// Create inserts a new meeting row.
func (r *PGRepository) Create(ctx context.Context, m Meeting) (Meeting, error) {
	const insertSQL = `
		INSERT INTO meetings (id, creator_id, participant_id, scheduled_start, scheduled_end, status, message, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::meeting_status, $7, 1, $8, $8)
		RETURNING ` + meetingColumns

	created, err := scanMeeting(r.pool.QueryRow(ctx, insertSQL,
		m.ID,
		m.CreatorID,
		m.ParticipantID,
		m.ScheduledStart,
		m.ScheduledEnd,
		string(m.Status),
		m.Message,
		m.CreatedAt,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23514":
				if pgErr.ConstraintName == "meetings_distinct_parties" {
					return Meeting{}, ErrSameParticipant
				}
				return Meeting{}, fmt.Errorf("%w: %s", ErrInvalidDuration, pgErr.ConstraintName)
			case "23505":
				return Meeting{}, fmt.Errorf("meeting: duplicate id %s: %w", m.ID, err)
			}
		}
		return Meeting{}, fmt.Errorf("meeting: create: %w", err)
	}
	return created, nil
}

// Get fetches a meeting by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Meeting, error) {
	const selectSQL = `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`

	m, err := scanMeeting(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, fmt.Errorf("meeting: get: %w", err)
	}
	return m, nil
}

// ListForUser returns meetings where userID is creator or participant, ordered by start.
func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Meeting, error) {
	const query = `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE creator_id = $1 OR participant_id = $1
		ORDER BY scheduled_start ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("meeting: list for user: %w", err)
	}
	return collectMeetings(rows, "list for user")
}

// ListEnded returns up to limit meetings in status whose scheduled end is at or before endedBy.
func (r *PGRepository) ListEnded(ctx context.Context, status Status, endedBy time.Time, limit int) ([]Meeting, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE status = $1::meeting_status AND scheduled_end <= $2
		ORDER BY scheduled_end ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, string(status), endedBy, limit)
	if err != nil {
		return nil, fmt.Errorf("meeting: list ended: %w", err)
	}
	return collectMeetings(rows, "list ended")
}

// Update applies a version compare-and-swap. A lost race is told apart from a
// missing row with a follow-up read.
func (r *PGRepository) Update(ctx context.Context, m Meeting, expectedVersion int64) (Meeting, error) {
	const updateSQL = `
		UPDATE meetings
		SET status = $3::meeting_status,
		    scheduled_start = $4,
		    scheduled_end = $5,
		    updated_at = $6,
		    version = version + 1
		WHERE id = $1
		  AND version = $2
		  AND status IN ('pending', 'accepted')
		RETURNING ` + meetingColumns

	updated, err := scanMeeting(r.pool.QueryRow(ctx, updateSQL,
		m.ID,
		expectedVersion,
		string(m.Status),
		m.ScheduledStart,
		m.ScheduledEnd,
		m.UpdatedAt,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return Meeting{}, fmt.Errorf("%w: %s", ErrInvalidDuration, pgErr.ConstraintName)
		}
		return Meeting{}, fmt.Errorf("meeting: update: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM meetings WHERE id = $1)`, m.ID).Scan(&exists); err != nil {
		return Meeting{}, fmt.Errorf("meeting: update check: %w", err)
	}
	if !exists {
		return Meeting{}, ErrNotFound
	}
	return Meeting{}, ErrConflict
}

func collectMeetings(rows pgx.Rows, op string) ([]Meeting, error) {
	defer rows.Close()

	out := make([]Meeting, 0, 8)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("meeting: scan %s: %w", op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("meeting: iterate %s: %w", op, err)
	}
	return out, nil
}

func scanMeeting(row pgx.Row) (Meeting, error) {
	var (
		m      Meeting
		status string
	)
	err := row.Scan(
		&m.ID,
		&m.CreatorID,
		&m.ParticipantID,
		&m.ScheduledStart,
		&m.ScheduledEnd,
		&status,
		&m.Message,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return Meeting{}, err
	}
	m.Status = Status(status)
	return m, nil
}
