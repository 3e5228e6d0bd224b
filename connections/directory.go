// Package connections answers whether two users are connected and may
// therefore schedule meetings with each other. Managing connection requests
// happens elsewhere; this package only reads the accepted pairs.
package connections

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSelfConnection signals an attempt to connect a user with themselves.
var ErrSelfConnection = errors.New("connections: cannot connect a user with themselves")

// Directory lists accepted connections.
type Directory interface {
	AreConnected(ctx context.Context, userA, userB string) (bool, error)
	List(ctx context.Context, userID string) ([]string, error)
}

// pair orders two ids so each connection is stored once.
func pair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PGDirectory implements Directory backed by the connections table.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory wires a PGDirectory on pool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

func (d *PGDirectory) AreConnected(ctx context.Context, userA, userB string) (bool, error) {
	if userA == userB {
		return false, nil
	}
	a, b := pair(userA, userB)
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM connections WHERE user_a = $1 AND user_b = $2)`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("connections: lookup: %w", err)
	}
	return exists, nil
}

func (d *PGDirectory) List(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		FROM connections
		WHERE user_a = $1 OR user_b = $1
		ORDER BY 1
	`
	rows, err := d.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("connections: list: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("connections: scan: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("connections: iterate: %w", err)
	}
	return out, nil
}

// Connect records an accepted connection. Connecting an existing pair is a no-op.
func (d *PGDirectory) Connect(ctx context.Context, userA, userB string) error {
	if userA == userB {
		return ErrSelfConnection
	}
	a, b := pair(userA, userB)
	_, err := d.pool.Exec(ctx, `INSERT INTO connections (user_a, user_b) VALUES ($1, $2) ON CONFLICT DO NOTHING`, a, b)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return ErrSelfConnection
		}
		return fmt.Errorf("connections: connect: %w", err)
	}
	return nil
}

// Static is an in-memory Directory.
type Static struct {
	mu    sync.RWMutex
	pairs map[[2]string]struct{}
}

// NewStatic returns a Static directory seeded with pairs.
func NewStatic(pairs ...[2]string) *Static {
	s := &Static{pairs: make(map[[2]string]struct{})}
	for _, p := range pairs {
		_ = s.Connect(context.Background(), p[0], p[1])
	}
	return s
}

func (s *Static) Connect(_ context.Context, userA, userB string) error {
	if userA == userB {
		return ErrSelfConnection
	}
	a, b := pair(userA, userB)
	s.mu.Lock()
	s.pairs[[2]string{a, b}] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Static) AreConnected(_ context.Context, userA, userB string) (bool, error) {
	a, b := pair(userA, userB)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pairs[[2]string{a, b}]
	return ok, nil
}

func (s *Static) List(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 8)
	for p := range s.pairs {
		switch userID {
		case p[0]:
			out = append(out, p[1])
		case p[1]:
			out = append(out, p[0])
		}
	}
	sort.Strings(out)
	return out, nil
}
