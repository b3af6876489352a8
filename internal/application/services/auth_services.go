package services

import (
	"errors"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

var (
	// ErrInvalidCredentials is returned for a wrong admin password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdminDisabled is returned when no admin password is configured.
	ErrAdminDisabled = errors.New("admin mode is not configured")
)

// AuthConfig holds admin gate settings
type AuthConfig struct {
	AdminPassword string
	JWTSecret     string
	TokenTTL      time.Duration
}

// NewAuthConfig creates settings from pkg/config. A missing JWT secret is
// replaced by a random one, so tokens do not survive a restart.
func NewAuthConfig(logger *logging.ChanneledLogger) *AuthConfig {
	secret := config.JWTSecret
	if secret == "" {
		generated, err := security.GenerateSecureKey(64)
		if err == nil {
			secret = generated
			if logger != nil {
				logger.Auth().Warn("JWT_SECRET not set, using an ephemeral secret")
			}
		}
	}
	return &AuthConfig{
		AdminPassword: config.AdminPassword,
		JWTSecret:     secret,
		TokenTTL:      config.JWTTTL,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService handles the admin password gate and admin JWTs
type AuthService struct {
	config      *AuthConfig
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(cfg *AuthConfig, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if cfg == nil {
		cfg = NewAuthConfig(logger)
	}
	return &AuthService{
		config:      cfg,
		logger:      logger,
		perfTracker: perfTracker,
		now:         time.Now,
	}
}

// Enabled reports whether admin login is possible.
func (a *AuthService) Enabled() bool {
	return a.config.AdminPassword != ""
}

// AuthenticateAdmin checks the admin password and issues a token.
func (a *AuthService) AuthenticateAdmin(password string) (*AuthResult, error) {
	if a.perfTracker != nil {
		marker := a.perfTracker.StartOperation("auth:login", "admin")
		defer a.perfTracker.CompleteOperation(marker)
	}

	if !a.Enabled() {
		return nil, ErrAdminDisabled
	}
	if !security.CheckPassword(a.config.AdminPassword, password) {
		a.logger.Auth().Warn("Admin login rejected")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := security.IssueAdminToken(a.config.JWTSecret, a.config.TokenTTL, a.now())
	if err != nil {
		a.logger.Auth().Error("Admin token generation failed", "error", err.Error())
		return nil, err
	}
	a.logger.Auth().Info("Admin login accepted", "expiresAt", expires.Format(time.RFC3339))
	return &AuthResult{Token: token, Role: "admin", ExpiresAt: expires}, nil
}

// ValidateAdminToken reports whether token is a live admin token.
func (a *AuthService) ValidateAdminToken(token string) bool {
	if _, err := security.ValidateAdminToken(token, a.config.JWTSecret); err != nil {
		a.logger.Auth().Debug("Admin token rejected", "error", err.Error())
		return false
	}
	return true
}
