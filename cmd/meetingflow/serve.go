package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meetingflow/api"
	"meetingflow/auth"
	"meetingflow/config"
	"meetingflow/connections"
	"meetingflow/db"
	"meetingflow/meeting"
	"meetingflow/notify"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the completion sweeper and the notification relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
	return cmd
}

// directory is a connections.Directory that can also record new pairs.
type directory interface {
	connections.Directory
	Connect(ctx context.Context, userA, userB string) error
}

// backend groups the storage-bound collaborators for the configured store.
type backend struct {
	meetings meeting.Store
	accounts auth.Repository
	dir      directory
	pool     *pgxpool.Pool
}

func openBackend(ctx context.Context, cfg config.Config, migrate bool) (backend, error) {
	if cfg.Store == config.StoreMemory {
		log.Printf("using in-memory store; data is lost on exit")
		return backend{
			meetings: meeting.NewMemoryStore(),
			accounts: auth.NewMemoryRepository(),
			dir:      connections.NewStatic(),
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return backend{}, err
	}
	if migrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return backend{}, err
		}
		for _, name := range applied {
			log.Printf("applied migration %s", name)
		}
	}
	return backend{
		meetings: meeting.NewRepository(pool),
		accounts: auth.NewRepository(pool),
		dir:      connections.NewPGDirectory(pool),
		pool:     pool,
	}, nil
}

// transports builds the downstream notifiers: always the log, plus Redis and
// SendGrid when configured.
func transports(ctx context.Context, cfg config.Config, accounts *auth.Service) (notify.Fanout, func(), error) {
	out := notify.Fanout{notify.LogNotifier{Logger: log.Default()}}
	cleanup := func() {}

	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = client.Close() }
		out = append(out, notify.NewRedisPublisher(client, ""))
	}
	if cfg.MailEnabled() {
		out = append(out, notify.NewMailer(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.AppName, cfg.AppURL, accounts.Contact))
	}
	return out, cleanup, nil
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	be, err := openBackend(ctx, cfg, migrate)
	if err != nil {
		return err
	}
	if be.pool != nil {
		defer be.pool.Close()
	}

	accounts := auth.NewService(be.accounts, cfg.JWTSecret)

	downstream, closeTransports, err := transports(ctx, cfg, accounts)
	if err != nil {
		return err
	}
	defer closeTransports()

	// With PostgreSQL events go through the outbox and the relay delivers them;
	// in memory they are delivered inline.
	var notifier notify.Notifier = downstream
	var relay *notify.Relay
	if be.pool != nil {
		notifier = notify.NewOutbox(be.pool)
		relay = notify.NewRelay(be.pool, downstream)
	}

	svc := meeting.NewService(be.meetings).
		WithValidator(meeting.NewValidator(cfg.AllowedDurations)).
		WithAdmissionPolicy(meeting.AdmissionPolicy{EntryBuffer: cfg.EntryBuffer}).
		WithConnections(be.dir).
		WithNotifier(notifier).
		WithStoreTimeout(cfg.StoreTimeout)
	sweeper := meeting.NewSweeper(svc, 100)

	server := api.NewServer(svc, accounts).
		WithDirectory(be.dir).
		WithLocation(cfg.Location()).
		WithTickInterval(cfg.TickInterval).
		WithCORSOrigins(cfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s (store=%s)", cfg.HTTPAddr, cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx, cfg.SweepInterval)
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx, cfg.RelayInterval)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("shut down cleanly")
	return nil
}
