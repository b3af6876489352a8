package gate

import (
	"time"

	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// Config holds fetch gate limits, sourced from the central config package.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
	ResetWindow time.Duration
	Timeout     time.Duration
}

// NewConfig creates a gate configuration from pkg/config.
func NewConfig() *Config {
	return &Config{
		MaxAttempts: config.FetchMaxAttempts,
		Cooldown:    config.FetchCooldown,
		ResetWindow: config.FetchResetWindow,
		Timeout:     config.FetchTimeout,
	}
}
