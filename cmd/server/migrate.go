package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/studyhub/study-hub/internal/infrastructure/persistence/postgres"
)

// migrationRunner is the subset of *postgres.Migrator used by the migrate command.
type migrationRunner interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]postgres.Migration, error)
}

// runMigrationCommand executes one of up, down or status and writes a report to out.
func runMigrationCommand(ctx context.Context, m migrationRunner, action string, out io.Writer) error {
	switch action {
	case "up":
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	case "down":
		if err := m.Rollback(ctx); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	migrations, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, mig := range migrations {
		state := "pending"
		if mig.IsApplied {
			state = "applied " + mig.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%03d %-28s %s\n", mig.Version, mig.Name, state)
	}
	return nil
}
