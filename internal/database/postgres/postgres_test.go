//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := Open(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to open database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	versions, err := pool.MigrationsApplied(ctx)
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_track_events.sql" {
		t.Errorf("Unexpected migrations: %v", versions)
	}
}

func TestTrackEventRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewTrackEventRepository(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("SaveAndList", func(t *testing.T) {
		events := []database.TrackEvent{
			{SessionID: "cam-1", Frame: 0, TrackID: 1, Kind: database.EventRegistered, X: 5, Y: 5, At: now},
			{SessionID: "cam-1", Frame: 0, TrackID: 2, Kind: database.EventRegistered, X: 50, Y: 5, At: now},
			{SessionID: "cam-1", Frame: 15, TrackID: 1, Kind: database.EventDeregistered, X: 5, Y: 5, At: now},
			{SessionID: "cam-2", Frame: 0, TrackID: 1, Kind: database.EventRegistered, X: 1, Y: 1, At: now},
		}
		if err := repo.SaveEvents(ctx, events); err != nil {
			t.Fatalf("Failed to save events: %v", err)
		}

		got, err := repo.ListEvents(ctx, "cam-1", 10)
		if err != nil {
			t.Fatalf("Failed to list events: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Expected 3 events, got %d", len(got))
		}
		if got[0].Kind != database.EventDeregistered || got[0].Frame != 15 {
			t.Errorf("Expected newest event first, got %+v", got[0])
		}
	})

	t.Run("ListLimit", func(t *testing.T) {
		got, err := repo.ListEvents(ctx, "cam-1", 1)
		if err != nil {
			t.Fatalf("Failed to list events: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Expected 1 event, got %d", len(got))
		}
	})

	t.Run("CountDistinctTracks", func(t *testing.T) {
		count, err := repo.CountDistinctTracks(ctx, "cam-1")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 2 {
			t.Errorf("Expected 2, got %d", count)
		}

		count, err = repo.CountDistinctTracks(ctx, "unknown")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected 0, got %d", count)
		}
	})

	t.Run("SaveEmpty", func(t *testing.T) {
		if err := repo.SaveEvents(ctx, nil); err != nil {
			t.Errorf("Expected no error for empty save, got %v", err)
		}
	})
}
