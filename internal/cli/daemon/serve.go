package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/jobs"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the finsight retrieval API on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides FINSIGHT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("keyword-only", false, "Disable vector search even when an embedding provider is configured")

	cli.SetEnv(cmd, append(retrievalEnv, "FINSIGHT_PORT", "FINSIGHT_API_KEYS", "FINSIGHT_SENTRY_DSN")...)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Debug:       cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	keywordOnly, _ := cmd.Flags().GetBool("keyword-only")

	a, err := newApp(ctx, cfg, appOptions{keywordOnly: keywordOnly, migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.Close()

	stopWarmer := func() {}
	if !a.svc.IndexReady() {
		stopWarmer = startIndexWarmer(ctx, a.svc, cfg.WarmInterval)
	}
	defer stopWarmer()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(a.routerConfig()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	stopWarmer()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// startIndexWarmer runs the index warmer until the returned stop function is
// called. Stopping abandons a build still in progress.
func startIndexWarmer(ctx context.Context, builder jobs.IndexBuilder, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	warmer := jobs.NewWorker(jobs.NewIndexWarmer(builder), interval)
	go warmer.Start(ctx)
	log.Println("index warmer started")

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			warmer.Stop()
		})
	}
}
