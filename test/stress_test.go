package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"meetingflow/connections"
	"meetingflow/meeting"
	"meetingflow/notify"
	"meetingflow/test/actors"
	"meetingflow/test/chaos"
	"meetingflow/test/infra"
	"meetingflow/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 4, "number of actors of each kind")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flChaos       = flag.Bool("chaos", true, "terminate random backends while running")
	flImage       = flag.String("pg-image", "", "PostgreSQL image for the throwaway container")
)

func TestMeetingConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in -short mode")
	}
	seed := *flSeed
	rand.Seed(seed)

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	var (
		pgC        = &infra.PGContainer{}
		dsn        string
		err        error
		usedShared bool
	)
	switch {
	case *flDSN != "":
		dsn, usedShared = *flDSN, true
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn, usedShared = os.Getenv("STRESS_TEST_PG_DSN"), true
	case dockerAvailable(ctx):
		pgC, err = infra.StartPostgres(ctx, infra.PostgresOptions{Image: *flImage})
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
		dsn = pgC.DSN
	default:
		dsn, err = infra.InitLocalDatabase(ctx)
		if err != nil {
			t.Skipf("no docker and no local postgres: %v", err)
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	creator, participant := mustSeed(t, ctx, pool)
	parties := [2]string{creator, participant}

	quiet := log.New(io.Discard, "", 0)
	svc := meeting.NewService(meeting.NewRepository(pool)).
		WithConnections(connections.NewPGDirectory(pool)).
		WithNotifier(notify.NewOutbox(pool)).
		WithStoreTimeout(2 * time.Second).
		WithLogger(quiet)
	relay := notify.NewRelay(pool, notify.NotifierFunc(func(context.Context, notify.Event) error { return nil }))

	reg := &actors.Registry{}
	var stats actors.Stats

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Inviter(ctx2, svc, reg, &stats, creator, participant, stop) })
		g.Go(func() error { return actors.Responder(ctx2, svc, reg, &stats, participant, stop) })
		g.Go(func() error { return actors.Canceller(ctx2, svc, reg, &stats, parties, stop) })
		g.Go(func() error { return actors.Rescheduler(ctx2, svc, reg, &stats, parties, stop) })
	}
	g.Go(func() error { return actors.Relay(ctx2, relay, stop) })
	if *flChaos {
		go chaos.TerminateRandomBackend(ctx2, pool, 2*time.Second, stop)
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				// A chaos kill can land on the oracle connection; try again next tick.
				t.Logf("oracle error: %v", err)
				continue
			}
			if name != "" {
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("actors errored: %v", err)
	}
	t.Logf("applied=%d rejected=%d failed=%d (seed=%d)", stats.Applied.Load(), stats.Rejected.Load(), stats.Failed.Load(), seed)
	if stats.Applied.Load() == 0 {
		t.Fatal("no operation was applied; the run exercised nothing")
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) (string, string) {
	t.Helper()
	insertUser := func(name string) string {
		var id string
		err := pool.QueryRow(ctx,
			`INSERT INTO users (email, full_name, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
			fmt.Sprintf("%s-%d@example.com", name, rand.Int63()), name,
		).Scan(&id)
		if err != nil {
			t.Fatalf("seed user %s: %v", name, err)
		}
		return id
	}
	creator := insertUser("creator")
	participant := insertUser("participant")
	if err := connections.NewPGDirectory(pool).Connect(ctx, creator, participant); err != nil {
		t.Fatalf("seed connection: %v", err)
	}
	return creator, participant
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	dumps := []struct {
		name string
		sql  string
	}{
		{"meetings", `SELECT id, status, version, scheduled_start, updated_at FROM meetings ORDER BY updated_at DESC LIMIT 50`},
		{"outbox", `SELECT id, topic, payload->>'meeting_id', status, attempts, created_at FROM outbox ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
