package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetingflow/db"
)

// openOutboxSchema migrates a throwaway schema on DATABASE_URL so the relay
// only ever sees rows written by the calling test.
func openOutboxSchema(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	schema := pgx.Identifier{fmt.Sprintf("outbox_it_%d", time.Now().UnixNano())}.Sanitize()
	admin, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close(ctx)
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.Exec(ctx2, "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
		admin.Close(ctx2)
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = strings.Trim(schema, `"`)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

type outboxState struct {
	status    string
	attempts  int
	lastError string
}

func readOutbox(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id string) outboxState {
	t.Helper()
	var st outboxState
	err := pool.QueryRow(ctx, `SELECT status, attempts, coalesce(last_error, '') FROM outbox WHERE id = $1`, id).
		Scan(&st.status, &st.attempts, &st.lastError)
	if err != nil {
		t.Fatalf("read outbox %s: %v", id, err)
	}
	return st
}

func TestRelay_DeadLettersAfterMaxAttempts_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool := openOutboxSchema(ctx, t)

	ev := sampleEvent()
	ev.ID = uuid.NewString()
	if err := NewOutbox(pool).Notify(ctx, ev); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// Replaying the same id must not add a second row.
	if err := NewOutbox(pool).Notify(ctx, ev); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}

	errMailbox := errors.New("sendgrid: 550 mailbox unavailable")
	relay := NewRelay(pool, NotifierFunc(func(context.Context, Event) error { return errMailbox })).
		WithMaxAttempts(3)
	relay.logger = log.New(io.Discard, "", 0)

	for attempt := 1; attempt <= 3; attempt++ {
		delivered, err := relay.Drain(ctx)
		if err != nil {
			t.Fatalf("drain %d: %v", attempt, err)
		}
		if delivered != 0 {
			t.Fatalf("drain %d: failing publisher delivered %d", attempt, delivered)
		}
		st := readOutbox(ctx, t, pool, ev.ID)
		if st.attempts != attempt {
			t.Fatalf("drain %d: expected %d attempts, got %d", attempt, attempt, st.attempts)
		}
		want := "pending"
		if attempt == 3 {
			want = "dead"
		}
		if st.status != want {
			t.Fatalf("drain %d: expected status %s, got %s", attempt, want, st.status)
		}
		if !strings.Contains(st.lastError, "mailbox unavailable") {
			t.Fatalf("drain %d: last_error not kept: %q", attempt, st.lastError)
		}
	}

	// Dead rows are never picked up again.
	if _, err := relay.Drain(ctx); err != nil {
		t.Fatalf("drain after dead: %v", err)
	}
	if st := readOutbox(ctx, t, pool, ev.ID); st.attempts != 3 || st.status != "dead" {
		t.Fatalf("dead row touched again: %+v", st)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM outbox`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single outbox row, got %d", rows)
	}
}

func TestRelay_MarksDeliveredProcessed_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool := openOutboxSchema(ctx, t)

	ev := sampleEvent()
	ev.ID = uuid.NewString()
	if err := NewOutbox(pool).Notify(ctx, ev); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	var (
		mu   sync.Mutex
		seen []Event
	)
	relay := NewRelay(pool, NotifierFunc(func(_ context.Context, got Event) error {
		mu.Lock()
		seen = append(seen, got)
		mu.Unlock()
		return nil
	}))

	delivered, err := relay.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}
	st := readOutbox(ctx, t, pool, ev.ID)
	if st.status != "processed" || st.attempts != 0 || st.lastError != "" {
		t.Fatalf("unexpected row after delivery %+v", st)
	}
	if len(seen) != 1 || seen[0].ID != ev.ID || seen[0].RecipientID != ev.RecipientID || !seen[0].ScheduledStart.Equal(ev.ScheduledStart) {
		t.Fatalf("publisher got %+v", seen)
	}

	if delivered, err := relay.Drain(ctx); err != nil || delivered != 0 {
		t.Fatalf("processed row redelivered: n=%d err=%v", delivered, err)
	}
}
