package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-tracker/internal/config"
	"github.com/kozaktomas/face-tracker/internal/constants"
	"github.com/kozaktomas/face-tracker/internal/database"
	"github.com/kozaktomas/face-tracker/internal/database/memory"
	"github.com/kozaktomas/face-tracker/internal/database/postgres"
	"github.com/kozaktomas/face-tracker/internal/session"
	"github.com/kozaktomas/face-tracker/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking API server",
	Long: `Start the Face Tracker HTTP API.

Each video stream gets its own tracking session. Clients post the detections
of every frame to /api/v1/sessions/{id}/frames and receive the tracked IDs;
registrations and deregistrations are streamed over server-sent events at
/api/v1/sessions/{id}/events.

When DATABASE_URL is set, track events are stored in PostgreSQL; otherwise
the most recent events of each session are kept in memory and dropped when
the session is deleted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST)")
}

// openEventStore connects to PostgreSQL when configured and falls back to an
// in-memory store. The returned cleanup closes the connection pool.
func openEventStore(ctx context.Context, cfg *config.DatabaseConfig) (database.TrackEventStore, func(), error) {
	if cfg.URL == "" {
		fmt.Println("DATABASE_URL not set, keeping track events in memory")
		return memory.NewTrackEventStore(constants.MaxHistoryLimit), func() {}, nil
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	fmt.Printf("Track event storage enabled (PostgreSQL)\n")

	cleanup := func() {
		if err := pool.Close(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}
	return postgres.NewTrackEventRepository(pool), cleanup, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openEventStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewManager(cfg.Tracker, store)
	server := web.NewServer(cfg, sessions, store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Tracker API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Printf("Forgetting faces after %d missed frames\n", cfg.Tracker.MaxMissed)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
