package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Outbox records events in the outbox table for asynchronous delivery by Relay.
type Outbox struct {
	pool *pgxpool.Pool
}

// NewOutbox wires an Outbox on pool.
func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// Notify enqueues ev. Replaying an event id is a no-op.
func (o *Outbox) Notify(ctx context.Context, ev Event) error {
	body, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal outbox payload: %w", err)
	}
	const q = `
		INSERT INTO outbox (id, topic, recipient_id, payload)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := o.pool.Exec(ctx, q, ev.ID, ev.Topic, ev.RecipientID, body); err != nil {
		return fmt.Errorf("notify: enqueue outbox: %w", err)
	}
	return nil
}

// Relay drains pending outbox rows and hands them to a downstream Notifier.
type Relay struct {
	pool        *pgxpool.Pool
	publisher   Notifier
	batch       int
	maxAttempts int
	logger      *log.Logger
}

// NewRelay builds a Relay publishing through publisher.
func NewRelay(pool *pgxpool.Pool, publisher Notifier) *Relay {
	return &Relay{
		pool:        pool,
		publisher:   publisher,
		batch:       25,
		maxAttempts: 5,
		logger:      log.Default(),
	}
}

func (r *Relay) WithBatch(n int) *Relay {
	if n > 0 {
		r.batch = n
	}
	return r
}

func (r *Relay) WithMaxAttempts(n int) *Relay {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

type outboxRow struct {
	id       string
	payload  []byte
	attempts int
}

// Drain processes one batch with FOR UPDATE SKIP LOCKED so several relays can
// run side by side. Rows that keep failing are marked dead after maxAttempts.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify: begin relay tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, payload, attempts
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`, r.batch)
	if err != nil {
		return 0, fmt.Errorf("notify: select outbox: %w", err)
	}
	pending := make([]outboxRow, 0, r.batch)
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.payload, &row.attempts); err != nil {
			rows.Close()
			return 0, fmt.Errorf("notify: scan outbox: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("notify: iterate outbox: %w", err)
	}

	delivered := 0
	for _, row := range pending {
		var ev Event
		pubErr := json.Unmarshal(row.payload, &ev)
		if pubErr == nil {
			pubErr = r.publisher.Notify(ctx, ev)
		}
		if pubErr == nil {
			if _, err := tx.Exec(ctx, `UPDATE outbox SET status = 'processed', last_attempt = NOW() WHERE id = $1`, row.id); err != nil {
				return delivered, fmt.Errorf("notify: mark processed: %w", err)
			}
			delivered++
			continue
		}

		status := "pending"
		if row.attempts+1 >= r.maxAttempts {
			status = "dead"
		}
		r.logger.Printf("notify: relay %s attempt %d: %v", row.id, row.attempts+1, pubErr)
		if _, err := tx.Exec(ctx, `UPDATE outbox SET attempts = attempts + 1, status = $2, last_attempt = NOW(), last_error = $3 WHERE id = $1`, row.id, status, pubErr.Error()); err != nil {
			return delivered, fmt.Errorf("notify: mark attempt: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("notify: commit relay tx: %w", err)
	}
	return delivered, nil
}

// Run drains every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
				r.logger.Printf("notify: relay drain: %v", err)
			}
		}
	}
}
