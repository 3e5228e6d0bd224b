package meeting

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetingflow/db"
)

// TestPGRepository_Integration connects to a real PostgreSQL via DATABASE_URL
// and exercises the version compare-and-swap against the meetings table.
func TestPGRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewRepository(pool)
	creator, participant := "it-"+uuid.NewString(), "it-"+uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	msg := "quarterly sync"

	m := Meeting{
		ID:             uuid.NewString(),
		CreatorID:      creator,
		ParticipantID:  participant,
		ScheduledStart: now.Add(time.Hour),
		ScheduledEnd:   now.Add(2 * time.Hour),
		Status:         StatusPending,
		Message:        &msg,
		CreatedAt:      now,
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		_, _ = pool.Exec(ctx2, `DELETE FROM meetings WHERE creator_id = $1`, creator)
	})

	created, err := repo.Create(ctx, m)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 || created.Status != StatusPending || created.Message == nil || *created.Message != msg {
		t.Fatalf("unexpected created row %+v", created)
	}

	got, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ScheduledStart.Equal(m.ScheduledStart) || !got.ScheduledEnd.Equal(m.ScheduledEnd) {
		t.Fatalf("window mismatch: %+v", got)
	}

	accepted := got
	accepted.Status = StatusAccepted
	accepted.UpdatedAt = now.Add(time.Minute)
	updated, err := repo.Update(ctx, accepted, got.Version)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != StatusAccepted {
		t.Fatalf("unexpected updated row %+v", updated)
	}

	// Stale version loses.
	if _, err := repo.Update(ctx, accepted, got.Version); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update: expected ErrConflict, got %v", err)
	}

	missing := accepted
	missing.ID = uuid.NewString()
	if _, err := repo.Update(ctx, missing, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing update: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Get(ctx, missing.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get: expected ErrNotFound, got %v", err)
	}

	same := m
	same.ID = uuid.NewString()
	same.ParticipantID = creator
	if _, err := repo.Create(ctx, same); !errors.Is(err, ErrSameParticipant) {
		t.Fatalf("same participant: expected ErrSameParticipant, got %v", err)
	}

	for _, user := range []string{creator, participant} {
		list, err := repo.ListForUser(ctx, user)
		if err != nil {
			t.Fatalf("list %s: %v", user, err)
		}
		if len(list) != 1 || list[0].ID != m.ID {
			t.Fatalf("list %s: unexpected %+v", user, list)
		}
	}

	ended, err := repo.ListEnded(ctx, StatusAccepted, now.Add(3*time.Hour), 1000)
	if err != nil {
		t.Fatalf("list ended: %v", err)
	}
	found := false
	for _, e := range ended {
		if e.ID == m.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("ended meeting %s not listed", m.ID)
	}

	// Terminal rows never change again.
	cancelled := updated
	cancelled.Status = StatusCancelled
	done, err := repo.Update(ctx, cancelled, updated.Version)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	revived := done
	revived.Status = StatusAccepted
	if _, err := repo.Update(ctx, revived, done.Version); !errors.Is(err, ErrConflict) {
		t.Fatalf("terminal update: expected ErrConflict, got %v", err)
	}
}
