// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/services"
	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/gate"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	schema "github.com/AtRiskMedia/folio-go/internal/infrastructure/database"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
	sqlcontent "github.com/AtRiskMedia/folio-go/internal/infrastructure/persistence/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/remote/supabase"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	ContentService   *services.ContentService
	StableView       *services.StableContentView
	ReadinessService *services.PageReadinessService
	AuthService      *services.AuthService
	SeedService      *services.SeedService

	// Caching
	Cache *stores.ContentCache
	Gate  *gate.Gate

	// Infrastructure Dependencies
	Store         repositories.ContentRepository
	DB            *database.DB // nil for the Supabase store
	Events        *messaging.EventBroadcaster
	WSHub         *messaging.WebsocketHub
	Alerter       *email.Alerter // nil when alerts are not configured
	CleanupWorker *cleanup.Worker
	Layout        *content.PageLayout
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
	Clock         clock.Clock

	unsubscribers []func()
}

// NewLogger builds the channeled logger from pkg/config.
func NewLogger() (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.JSONFormat = config.LogJSON
	cfg.OutputToFile = config.LogToFile
	cfg.LogDirectory = config.LogDirectory
	if level, ok := logging.ParseLevel(config.LogLevel); ok {
		cfg.DefaultLevel = level
	} else {
		cfg.DefaultLevel = slog.LevelInfo
	}
	return logging.NewChanneledLogger(cfg)
}

// OpenStore connects the remote content store selected by STORE_DRIVER. SQL
// stores get their schema created. The returned DB is nil for Supabase.
func OpenStore(driver string, logger *logging.ChanneledLogger) (repositories.ContentRepository, *database.DB, error) {
	switch strings.ToLower(driver) {
	case "supabase":
		client, err := supabase.NewClient(supabase.NewClientOptions(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		logger.Database().Info("Using Supabase content store", "url", config.SupabaseURL, "table", config.SupabaseTable)
		return client, nil, nil
	case "", "sqlite", "turso":
		opts := database.NewOptions(strings.ToLower(driver))
		db, err := database.Open(opts, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := schema.NewTableCreator().CreateSchema(db.DB); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create content schema: %w", err)
		}
		logger.Database().Info("Using SQL content store", "driver", db.Driver)
		return sqlcontent.NewContentRepository(db.DB, logger), db, nil
	}
	return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", driver)
}

// NewGate builds a fetch gate over store with its own clock and tracker, for
// one-off fetches outside a running container.
func NewGate(store repositories.ContentReader, logger *logging.ChanneledLogger) *gate.Gate {
	return gate.New(store, gate.NewConfig(), clock.Real(), logger, performance.NewTracker(performance.DefaultTrackerConfig()))
}

// NewContainer creates and wires all singleton services around store.
func NewContainer(store repositories.ContentRepository, db *database.DB, logger *logging.ChanneledLogger) (*Container, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	clk := clock.Real()
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())

	layout, err := content.LoadLayout(config.PageLayoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load page layout: %w", err)
	}

	fetchGate := gate.New(store, gate.NewConfig(), clk, logger, perfTracker)
	cache := stores.NewContentCache(fetchGate, stores.NewContentCacheConfig(), clk, logger)
	events := messaging.NewEventBroadcaster(config.MaxEventClients, logger)

	alerter, err := email.NewAlerterFromConfig(logger)
	if err != nil {
		logger.Alert().Warn("Owner alerts disabled", "error", err.Error())
	}
	notifiers := messaging.MultiNotifier{messaging.PublishingNotifier{Publisher: events}}
	if alerter != nil {
		notifiers = append(notifiers, alerter)
	}

	contentService := services.NewContentService(cache, fetchGate, store, notifiers,
		services.NewContentServiceConfig(), clk, logger, perfTracker)
	stableView := services.NewStableContentView(contentService)
	readiness := services.NewPageReadinessService(stableView, events, services.NewReadinessConfig(), clk, logger)

	c := &Container{
		ContentService:   contentService,
		StableView:       stableView,
		ReadinessService: readiness,
		AuthService:      services.NewAuthService(services.NewAuthConfig(logger), logger, perfTracker),
		SeedService:      services.NewSeedService(store, logger),
		Cache:            cache,
		Gate:             fetchGate,
		Store:            store,
		DB:               db,
		Events:           events,
		Alerter:          alerter,
		Layout:           layout,
		Logger:           logger,
		PerfTracker:      perfTracker,
		Clock:            clk,
	}

	c.WSHub = messaging.NewWebsocketHub(c.Snapshot,
		time.Duration(config.SSEHeartbeatIntervalSeconds)*time.Second, logger)
	events.AttachWebsocketHub(c.WSHub)

	c.unsubscribers = append(c.unsubscribers,
		cache.OnInvalidation(func(e types.InvalidationEvent) {
			events.Publish(messaging.EventInvalidation, e)
		}),
		contentService.OnChange(func(services.ContentState) {
			readiness.EvaluateSections()
		}),
	)

	c.CleanupWorker = cleanup.NewWorker(cleanup.NewConfig(), logger).
		AddTarget("content", cache).
		AddTarget("performance", perfTracker).
		WithStats(cache)

	return c, nil
}

// Snapshot is the periodic state pushed to websocket clients.
func (c *Container) Snapshot() any {
	return map[string]any{
		"cache":      c.Cache.GetStats(),
		"gate":       c.Gate.Stats(),
		"readiness":  c.ReadinessService.State(),
		"sseClients": c.Events.ClientCount(),
	}
}

// Close releases every component in reverse dependency order.
func (c *Container) Close() error {
	for _, unsubscribe := range c.unsubscribers {
		unsubscribe()
	}
	c.ReadinessService.Close()
	c.ContentService.Close()
	c.Cache.Close()
	c.Events.Close()
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
