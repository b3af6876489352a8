package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/services"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/folio-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLogin handles POST /api/v1/auth/login - admin authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", c.ClientIP())
	defer h.perfTracker.CompleteOperation(marker)

	var loginReq struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.authService.AuthenticateAdmin(loginReq.Password)
	if err != nil {
		marker.SetError(err)
		status := http.StatusUnauthorized
		if errors.Is(err, services.ErrAdminDisabled) {
			status = http.StatusServiceUnavailable
		} else if !errors.Is(err, services.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		h.logger.Auth().Warn("Login attempt failed", "error", err.Error(), "duration", time.Since(start))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	c.SetCookie(
		middleware.AdminCookieName, // name
		result.Token,               // value
		maxAge,                     // maxAge
		"/",                        // path
		"",                         // domain (empty for current domain)
		c.Request.TLS != nil,       // secure
		true,                       // httpOnly
	)

	h.logger.Perf().Info("Performance for PostLogin request", "duration", time.Since(start), "success", true)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     result.Token,
		"role":      result.Role,
		"expiresAt": result.ExpiresAt,
	})
}

// GetAuthCheck handles GET /api/v1/auth/check
func (h *AuthHandlers) GetAuthCheck(c *gin.Context) {
	token := middleware.AdminToken(c)
	isAdmin := token != "" && h.authService.ValidateAdminToken(token)
	c.JSON(http.StatusOK, gin.H{
		"isAdmin":      isAdmin,
		"adminEnabled": h.authService.Enabled(),
	})
}

// PostLogout handles POST /api/v1/auth/logout
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	c.SetCookie(middleware.AdminCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
