package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/internal/infrastructure/persistence/postgres"
)

type fakeMigrator struct {
	applied  int
	calls    []string
	failWith error
}

func (f *fakeMigrator) Migrate(context.Context) error {
	f.calls = append(f.calls, "up")
	if f.failWith != nil {
		return f.failWith
	}
	f.applied = len(postgres.GetMigrations())
	return nil
}

func (f *fakeMigrator) Rollback(context.Context) error {
	f.calls = append(f.calls, "down")
	if f.applied > 0 {
		f.applied--
	}
	return nil
}

func (f *fakeMigrator) Status(context.Context) ([]postgres.Migration, error) {
	f.calls = append(f.calls, "status")
	at := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)
	migrations := postgres.GetMigrations()
	for i := range migrations {
		if migrations[i].Version <= f.applied {
			migrations[i].IsApplied = true
			migrations[i].AppliedAt = at
		}
	}
	return migrations, nil
}

func TestRunMigrationCommand(t *testing.T) {
	tests := []struct {
		name      string
		action    string
		applied   int
		wantCalls []string
		wantLines []string
	}{
		{
			name:      "up applies and reports",
			action:    "up",
			wantCalls: []string{"up", "status"},
			wantLines: []string{"001 create_users_and_sessions", "004 seed_badge_definitions", "applied 2024-06-10T08:00:00Z"},
		},
		{
			name:      "down rolls back the latest",
			action:    "down",
			applied:   4,
			wantCalls: []string{"down", "status"},
			wantLines: []string{"003 create_friendships", "004 seed_badge_definitions       pending"},
		},
		{
			name:      "status only reports",
			action:    "status",
			applied:   0,
			wantCalls: []string{"status"},
			wantLines: []string{"001 create_users_and_sessions    pending"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{applied: tt.applied}
			var out bytes.Buffer

			require.NoError(t, runMigrationCommand(context.Background(), m, tt.action, &out))

			assert.Equal(t, tt.wantCalls, m.calls)
			for _, line := range tt.wantLines {
				assert.Contains(t, out.String(), line)
			}
		})
	}
}

func TestRunMigrationCommand_Errors(t *testing.T) {
	var out bytes.Buffer

	err := runMigrationCommand(context.Background(), &fakeMigrator{}, "sideways", &out)
	assert.ErrorContains(t, err, "unknown migrate action")

	boom := errors.New("boom")
	m := &fakeMigrator{failWith: boom}
	assert.ErrorIs(t, runMigrationCommand(context.Background(), m, "up", &out), boom)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.Empty(t, out.String())
}
