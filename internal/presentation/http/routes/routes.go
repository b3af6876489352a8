// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/container"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/folio-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/folio-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/folio-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.CORSMiddleware(config.CORSAllowedOrigins))

	// Initialize handlers
	contentHandlers := handlers.NewContentHandlers(container.ContentService, container.StableView, container.Gate, container.Logger, container.PerfTracker)
	pageHandlers := handlers.NewPageHandlers(container.ReadinessService, container.StableView, container.Layout, container.Logger)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	eventHandlers := handlers.NewEventHandlers(container.Events, container.WSHub,
		time.Duration(config.SSEHeartbeatIntervalSeconds)*time.Second, container.Logger)
	sysopHandlers := handlers.NewSysOpHandlers(container.Logger, logging.GetBroadcaster())

	requireAdmin := middleware.RequireAdmin(container.AuthService)

	r.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":      "ok",
			"store":       config.StoreDriver,
			"performance": container.PerfTracker.Health(),
		}
		if container.DB != nil {
			if err := database.CheckConnection(c.Request.Context(), container.DB, container.Logger); err != nil {
				health["status"] = "degraded"
				health["error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, health)
				return
			}
		}
		c.JSON(http.StatusOK, health)
	})

	api := r.Group("/api/v1")
	{
		content := api.Group("/content")
		{
			content.GET("", contentHandlers.GetContent)
			content.POST("/bulk", contentHandlers.PostBulkContent)
			content.GET("/stats", contentHandlers.GetStats)
			content.GET("/:name", contentHandlers.GetContentItem)
			content.GET("/:name/stale", contentHandlers.GetStale)

			content.PUT("/:name", requireAdmin, contentHandlers.PutContentItem)
			content.POST("/refresh", requireAdmin, contentHandlers.PostRefresh)
			content.POST("/invalidate", requireAdmin, contentHandlers.PostInvalidate)
			content.POST("/retry", requireAdmin, contentHandlers.PostRetry)
		}

		page := api.Group("/page")
		{
			page.GET("/readiness", pageHandlers.GetReadiness)
			page.GET("/layout", pageHandlers.GetLayout)
			page.POST("/sections", pageHandlers.PostSection)
			page.DELETE("/sections/:name", pageHandlers.DeleteSection)
		}

		events := api.Group("/events")
		{
			events.GET("/stream", eventHandlers.StreamEvents)
			events.GET("/ws", eventHandlers.ServeWebsocket)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
			auth.GET("/check", authHandlers.GetAuthCheck)
		}
	}

	sysopAPI := r.Group("/api/sysop", requireAdmin)
	{
		sysopAPI.GET("/logs/levels", sysopHandlers.GetLogLevels)
		sysopAPI.POST("/logs/levels", sysopHandlers.SetLogLevel)
		sysopAPI.GET("/performance", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"stats":  container.PerfTracker.GetOverallStats(),
				"alerts": container.PerfTracker.GetAlerts(50),
			})
		})
	}

	// Log streaming is a special case and can remain at top level
	r.GET("/sysop-logs/stream", requireAdmin, sysopHandlers.StreamLogs)

	return r
}
