package infra

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresOptions describes the throwaway server a stress run needs. Empty
// fields fall back to DefaultPostgresOptions.
type PostgresOptions struct {
	Image    string
	Database string
	User     string
	Password string
}

// DefaultPostgresOptions matches the production major version.
var DefaultPostgresOptions = PostgresOptions{
	Image:    "postgres:16-alpine",
	Database: "meetingflow",
	User:     "meetingflow",
	Password: "meetingflow",
}

func (o PostgresOptions) withDefaults() PostgresOptions {
	d := DefaultPostgresOptions
	if o.Image == "" {
		o.Image = d.Image
	}
	if o.Database == "" {
		o.Database = d.Database
	}
	if o.User == "" {
		o.User = d.User
	}
	if o.Password == "" {
		o.Password = d.Password
	}
	return o
}

// PGContainer is a running PostgreSQL container. The zero value stands for an
// externally managed database and terminates nothing.
type PGContainer struct {
	C   *postgres.PostgresContainer
	DSN string
}

// StartPostgres launches a container described by opts and waits until it
// accepts connections.
func StartPostgres(ctx context.Context, opts PostgresOptions) (*PGContainer, error) {
	opts = opts.withDefaults()

	pgC, err := postgres.Run(ctx, opts.Image,
		postgres.WithDatabase(opts.Database),
		postgres.WithUsername(opts.User),
		postgres.WithPassword(opts.Password),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", opts.Image, err)
	}
	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgC.Terminate(ctx)
		return nil, fmt.Errorf("container dsn: %w", err)
	}
	return &PGContainer{C: pgC, DSN: dsn}, nil
}

func (p *PGContainer) Terminate(ctx context.Context) error {
	if p == nil || p.C == nil {
		return nil
	}
	return p.C.Terminate(ctx)
}
