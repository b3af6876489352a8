// Package startup prepares the application server
package startup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/container"
	"github.com/AtRiskMedia/folio-go/internal/application/services"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/folio-go/pkg/config"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

// Initialize performs the complete startup sequence and blocks until a
// shutdown signal arrives.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `
  folio-go
` + "\033[97m" + `  portfolio content service
` + "\033[0m")

	// Step 1: Logger
	logger, err := container.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()
	logger.Startup().Info("Logger initialized - switching to channeled logging")

	// Step 2: Content store
	phaseStart := time.Now()
	store, db, err := container.OpenStore(config.StoreDriver, logger)
	if err != nil {
		logger.LogStartupPhase("open_store", time.Since(phaseStart), false)
		return fmt.Errorf("failed to open content store: %w", err)
	}
	logger.LogStartupPhase("open_store", time.Since(phaseStart), true)

	// Step 3: Dependency injection container
	phaseStart = time.Now()
	appContainer, err := container.NewContainer(store, db, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return fmt.Errorf("failed to create container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(phaseStart), true)

	// Step 4: Register layout sections and preload their content
	phaseStart = time.Now()
	for _, section := range appContainer.Layout.Sections {
		appContainer.ReadinessService.TrackSection(section.Name, section.Content)
	}
	names := appContainer.Layout.ContentNames()
	if err := appContainer.ContentService.PreloadContent(ctx, names); err != nil {
		logger.Startup().Warn("Initial preload failed, serving fallbacks", "names", len(names), "error", err.Error())
	}
	appContainer.ReadinessService.EvaluateSections()
	logger.LogStartupPhase("preload", time.Since(phaseStart), true)

	// Step 5: Background workers
	go appContainer.WSHub.Run(ctx)
	go appContainer.CleanupWorker.Start(ctx)
	logger.Startup().Info("Background workers started")

	// Step 6: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			serverErr <- err
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"store", config.StoreDriver,
		"sections", len(appContainer.Layout.Sections),
		"port", config.Port)

	select {
	case <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		logger.System().Error("HTTP server failed", "error", err.Error())
	}

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}
	logging.GetBroadcaster().Shutdown()

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// Seed writes the static fallback table into the configured store and prints
// the result as JSON.
func Seed(ctx context.Context, overwrite bool, out io.Writer) error {
	logger, err := container.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	store, db, err := container.OpenStore(config.StoreDriver, logger)
	if err != nil {
		return fmt.Errorf("failed to open content store: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	result, err := services.NewSeedService(store, logger).Seed(ctx, overwrite)
	if err != nil {
		return err
	}
	logger.Startup().Info("Seed complete", "written", len(result.Written), "skipped", result.Skipped)
	return writeJSON(out, result)
}

// Fetch runs one gated bulk fetch against the configured store and prints
// the result as JSON.
func Fetch(ctx context.Context, names []string, out io.Writer) error {
	logger, err := container.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	store, db, err := container.OpenStore(config.StoreDriver, logger)
	if err != nil {
		return fmt.Errorf("failed to open content store: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	result := container.NewGate(store, logger).BulkFetch(ctx, names)
	payload := map[string]any{"content": result.Content}
	if result.Err != nil {
		payload["error"] = result.ErrorMessage()
	}
	if err := writeJSON(out, payload); err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("fetch failed: %w", result.Err)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
