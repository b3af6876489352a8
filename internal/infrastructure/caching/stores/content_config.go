package stores

import (
	"time"

	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// ContentCacheConfig holds content cache timings, sourced from pkg/config.
type ContentCacheConfig struct {
	StaleAfter      time.Duration
	ExpireAfter     time.Duration
	WriteDebounce   time.Duration
	RefreshDebounce time.Duration
}

// NewContentCacheConfig reads the content cache timings from pkg/config.
func NewContentCacheConfig() *ContentCacheConfig {
	return &ContentCacheConfig{
		StaleAfter:      config.CacheStaleAfter,
		ExpireAfter:     config.CacheExpireAfter,
		WriteDebounce:   config.CacheWriteDebounce,
		RefreshDebounce: config.CacheRefreshDebounce,
	}
}
