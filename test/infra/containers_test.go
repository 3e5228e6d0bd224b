package infra

import (
	"context"
	"testing"
)

func TestPostgresOptionsDefaults(t *testing.T) {
	got := PostgresOptions{}.withDefaults()
	if got != DefaultPostgresOptions {
		t.Fatalf("expected defaults %+v, got %+v", DefaultPostgresOptions, got)
	}

	custom := PostgresOptions{Image: "postgres:17-alpine", Password: "s3cret"}.withDefaults()
	if custom.Image != "postgres:17-alpine" || custom.Password != "s3cret" {
		t.Fatalf("caller values overwritten: %+v", custom)
	}
	if custom.Database != DefaultPostgresOptions.Database || custom.User != DefaultPostgresOptions.User {
		t.Fatalf("missing fields not defaulted: %+v", custom)
	}
}

func TestZeroContainerTerminate(t *testing.T) {
	var nilC *PGContainer
	if err := nilC.Terminate(context.Background()); err != nil {
		t.Fatalf("nil container: %v", err)
	}
	if err := (&PGContainer{DSN: "postgres://shared"}).Terminate(context.Background()); err != nil {
		t.Fatalf("external database: %v", err)
	}
}
