package handlers

import (
	"net/http"

	"github.com/AtRiskMedia/folio-go/internal/application/services"
	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// PageHandlers exposes page readiness and the page layout
type PageHandlers struct {
	readiness  *services.PageReadinessService
	stableView *services.StableContentView
	layout     *content.PageLayout
	logger     *logging.ChanneledLogger
}

func NewPageHandlers(readiness *services.PageReadinessService, stableView *services.StableContentView, layout *content.PageLayout, logger *logging.ChanneledLogger) *PageHandlers {
	return &PageHandlers{
		readiness:  readiness,
		stableView: stableView,
		layout:     layout,
		logger:     logger,
	}
}

// GetReadiness handles GET /api/v1/page/readiness
func (h *PageHandlers) GetReadiness(c *gin.Context) {
	c.JSON(http.StatusOK, h.readiness.State())
}

// PostSection handles POST /api/v1/page/sections
func (h *PageHandlers) PostSection(c *gin.Context) {
	var req struct {
		Name         string   `json:"name" binding:"required"`
		ContentNames []string `json:"contentNames"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "section name is required"})
		return
	}

	loaded := h.readiness.TrackSection(req.Name, req.ContentNames)
	h.logger.Readiness().Debug("Section tracked via API", "section", req.Name, "loaded", loaded)
	c.JSON(http.StatusOK, gin.H{
		"section": req.Name,
		"loaded":  loaded,
		"content": h.stableView.GetMany(req.ContentNames),
	})
}

// DeleteSection handles DELETE /api/v1/page/sections/:name
func (h *PageHandlers) DeleteSection(c *gin.Context) {
	h.readiness.UnregisterSection(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{"section": c.Param("name"), "removed": true})
}

// GetLayout handles GET /api/v1/page/layout
func (h *PageHandlers) GetLayout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sections": h.layout.Sections})
}
