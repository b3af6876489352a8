// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/services"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/gate"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

const maxNamesPerRequest = 200

// ContentHandlers contains all content-related HTTP handlers
type ContentHandlers struct {
	contentService *services.ContentService
	stableView     *services.StableContentView
	gate           *gate.Gate
	logger         *logging.ChanneledLogger
	perfTracker    *performance.Tracker
}

// NewContentHandlers creates content handlers with injected dependencies
func NewContentHandlers(
	contentService *services.ContentService,
	stableView *services.StableContentView,
	fetchGate *gate.Gate,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ContentHandlers {
	return &ContentHandlers{
		contentService: contentService,
		stableView:     stableView,
		gate:           fetchGate,
		logger:         logger,
		perfTracker:    perfTracker,
	}
}

type namesRequest struct {
	Names []string `json:"names" binding:"required"`
}

// GetContent handles GET /api/v1/content?names=a,b
func (h *ContentHandlers) GetContent(c *gin.Context) {
	names := splitNames(c.Query("names"))
	h.serveNames(c, names, "get_content_request")
}

// PostBulkContent handles POST /api/v1/content/bulk
func (h *ContentHandlers) PostBulkContent(c *gin.Context) {
	var req namesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	h.serveNames(c, splitNames(strings.Join(req.Names, ",")), "post_bulk_content_request")
}

func (h *ContentHandlers) serveNames(c *gin.Context, names []string, operation string) {
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one content name is required"})
		return
	}
	if len(names) > maxNamesPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many content names"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation(operation, gate.Signature(names))
	defer h.perfTracker.CompleteOperation(marker)

	response := gin.H{}
	if err := h.contentService.PreloadContent(c.Request.Context(), names); err != nil {
		// Fallback content is still served.
		response["error"] = err.Error()
		marker.SetError(err)
	}

	static := make([]string, 0)
	for _, name := range names {
		if h.stableView.IsStatic(name) {
			static = append(static, name)
		}
	}
	response["content"] = h.stableView.GetMany(names)
	response["static"] = static

	h.logger.Content().Debug("Served content", "names", len(names), "static", len(static), "duration", time.Since(start))
	c.JSON(http.StatusOK, response)
}

// GetContentItem handles GET /api/v1/content/:name
func (h *ContentHandlers) GetContentItem(c *gin.Context) {
	name := c.Param("name")
	marker := h.perfTracker.StartOperation("get_content_item_request", name)
	defer h.perfTracker.CompleteOperation(marker)

	response := gin.H{"name": name}
	if err := h.contentService.PreloadContent(c.Request.Context(), []string{name}); err != nil {
		response["error"] = err.Error()
	}
	response["content"] = h.stableView.Get(name)
	response["isStatic"] = h.stableView.IsStatic(name)
	response["isStale"] = h.contentService.IsContentStale(name)
	response["unsaved"] = h.contentService.IsUnsaved(name)
	c.JSON(http.StatusOK, response)
}

// PutContentItem handles PUT /api/v1/content/:name (admin)
func (h *ContentHandlers) PutContentItem(c *gin.Context) {
	name := c.Param("name")
	var req struct {
		Content *string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	marker := h.perfTracker.StartOperation("put_content_request", name)
	defer h.perfTracker.CompleteOperation(marker)

	err := h.contentService.SaveContent(c.Request.Context(), name, *req.Content)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"name": name, "content": *req.Content, "saved": true})
	case errors.Is(err, services.ErrSaveVerification):
		marker.SetError(err)
		c.JSON(http.StatusConflict, gin.H{"name": name, "content": *req.Content, "saved": true, "error": err.Error()})
	default:
		marker.SetError(err)
		h.logger.Content().Error("Save request failed", "name", name, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"name": name, "content": *req.Content, "saved": false, "error": err.Error()})
	}
}

// PostRefresh handles POST /api/v1/content/refresh (admin)
func (h *ContentHandlers) PostRefresh(c *gin.Context) {
	var req namesRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "names are required"})
		return
	}
	response := gin.H{"names": req.Names}
	if err := h.contentService.RefreshContent(c.Request.Context(), req.Names); err != nil {
		response["error"] = err.Error()
	}
	response["content"] = h.stableView.GetMany(req.Names)
	c.JSON(http.StatusOK, response)
}

// PostInvalidate handles POST /api/v1/content/invalidate (admin). Either
// names or a regular expression pattern may be given.
func (h *ContentHandlers) PostInvalidate(c *gin.Context) {
	var req struct {
		Names   []string `json:"names"`
		Pattern string   `json:"pattern"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	switch {
	case req.Pattern != "":
		removed, err := h.contentService.InvalidatePattern(req.Pattern)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pattern": req.Pattern, "invalidated": removed})
	case len(req.Names) > 0:
		h.contentService.InvalidateContent(req.Names)
		c.JSON(http.StatusOK, gin.H{"names": req.Names, "invalidated": len(req.Names)})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "names or pattern is required"})
	}
}

// PostRetry handles POST /api/v1/content/retry (admin). An empty list
// retries every failed name.
func (h *ContentHandlers) PostRetry(c *gin.Context) {
	var req struct {
		Names []string `json:"names"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	response := gin.H{}
	if err := h.contentService.RetryFailedContent(c.Request.Context(), req.Names...); err != nil {
		response["error"] = err.Error()
	}
	response["failedItems"] = h.contentService.State().FailedItems
	c.JSON(http.StatusOK, response)
}

// GetStats handles GET /api/v1/content/stats
func (h *ContentHandlers) GetStats(c *gin.Context) {
	stats := h.contentService.GetCacheStats()
	state := h.contentService.State()
	c.JSON(http.StatusOK, gin.H{
		"cache":       stats,
		"hitRatio":    stats.HitRatio(),
		"gate":        h.gate.Stats(),
		"isLoading":   state.IsLoading,
		"failedItems": state.FailedItems,
		"error":       state.Error,
	})
}

// GetStale handles GET /api/v1/content/:name/stale
func (h *ContentHandlers) GetStale(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, gin.H{"name": name, "isStale": h.contentService.IsContentStale(name)})
}

func splitNames(raw string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
