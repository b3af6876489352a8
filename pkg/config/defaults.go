// Package config provides centralized default values for folio-go
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env overrides once. Variables already set in the
// environment win.
func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Printf("Ignoring unreadable .env file: %v", err)
			}
			return
		}
		log.Println("Loaded configuration overrides from .env file")
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

// getEnvSecret reads a credential without echoing its value.
func getEnvSecret(key string) string {
	val := os.Getenv(key)
	if val != "" {
		log.Printf("Config override: %s=<redacted>", key)
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowedOrigins string

	// Remote Store
	StoreDriver        string // sqlite | turso | supabase
	SQLitePath         string
	TursoDatabaseURL   string
	TursoAuthToken     string
	SupabaseURL        string
	SupabaseAPIKey     string
	SupabaseTable      string
	SupabaseRetryMax   int
	SlowQueryThreshold time.Duration

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// Fetch Gate
	FetchMaxAttempts int
	FetchCooldown    time.Duration
	FetchResetWindow time.Duration
	FetchTimeout     time.Duration

	// Content Cache
	CacheStaleAfter      time.Duration
	CacheExpireAfter     time.Duration
	CacheWriteDebounce   time.Duration
	CacheRefreshDebounce time.Duration
	CleanupInterval      time.Duration
	CleanupVerbose       bool

	// Content Service
	SaveTimeout       time.Duration
	RetryBaseDelay    time.Duration
	RetryMaxAttempts  int
	VerifySaves       bool
	PageLayoutFile    string
	ReadinessDebounce time.Duration
	ReadinessSafety   time.Duration
	ReadinessMinimum  time.Duration

	// Admin
	AdminPassword string
	JWTSecret     string
	JWTTTL        time.Duration

	// SSE / Websocket
	SSEHeartbeatIntervalSeconds int
	MaxEventClients             int

	// Alerts
	ResendAPIKey string
	AlertFrom    string
	AlertTo      string

	// Logging
	LogLevel     string
	LogDirectory string
	LogToFile    bool
	LogJSON      bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 0) // 0 keeps event streams open
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", "")

	// Remote Store
	StoreDriver = getEnvString("STORE_DRIVER", "sqlite")
	SQLitePath = getEnvString("SQLITE_PATH", "data/folio.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvSecret("TURSO_AUTH_TOKEN")
	SupabaseURL = getEnvString("SUPABASE_URL", "")
	SupabaseAPIKey = getEnvSecret("SUPABASE_API_KEY")
	SupabaseTable = getEnvString("SUPABASE_TABLE", "site_content")
	SupabaseRetryMax = getEnvInt("SUPABASE_RETRY_MAX", 2)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// Fetch Gate
	FetchMaxAttempts = getEnvInt("FETCH_MAX_ATTEMPTS", 3)
	FetchCooldown = getEnvDuration("FETCH_COOLDOWN", 5*time.Second)
	FetchResetWindow = getEnvDuration("FETCH_RESET_WINDOW", 30*time.Second)
	FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 8*time.Second)

	// Content Cache
	CacheStaleAfter = time.Duration(getEnvInt("CACHE_STALE_MINUTES", 10)) * time.Minute
	CacheExpireAfter = time.Duration(getEnvInt("CACHE_EXPIRE_MINUTES", 15)) * time.Minute
	CacheWriteDebounce = getEnvDuration("CACHE_WRITE_DEBOUNCE", 200*time.Millisecond)
	CacheRefreshDebounce = getEnvDuration("CACHE_REFRESH_DEBOUNCE", time.Second)
	CleanupInterval = time.Duration(getEnvInt("CACHE_CLEANUP_INTERVAL_SECONDS", 60)) * time.Second
	CleanupVerbose = getEnvBool("CACHE_CLEANUP_VERBOSE", false)

	// Content Service
	SaveTimeout = getEnvDuration("SAVE_TIMEOUT", 15*time.Second)
	RetryBaseDelay = getEnvDuration("RETRY_BASE_DELAY", time.Second)
	RetryMaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", 3)
	VerifySaves = getEnvBool("VERIFY_SAVES", true)
	PageLayoutFile = getEnvString("PAGE_LAYOUT_FILE", "")
	ReadinessDebounce = getEnvDuration("READINESS_DEBOUNCE", 50*time.Millisecond)
	ReadinessSafety = getEnvDuration("READINESS_SAFETY_TIMEOUT", 5*time.Second)
	ReadinessMinimum = getEnvDuration("READINESS_MIN_LOADING", 500*time.Millisecond)

	// Admin
	AdminPassword = getEnvSecret("ADMIN_PASSWORD")
	JWTSecret = getEnvSecret("JWT_SECRET")
	JWTTTL = time.Duration(getEnvInt("JWT_TTL_HOURS", 12)) * time.Hour

	// SSE / Websocket
	SSEHeartbeatIntervalSeconds = getEnvInt("SSE_HEARTBEAT_INTERVAL_SECONDS", 30)
	MaxEventClients = getEnvInt("MAX_EVENT_CLIENTS", 500)

	// Alerts
	ResendAPIKey = getEnvSecret("RESEND_API_KEY")
	AlertFrom = getEnvString("ALERT_FROM", "")
	AlertTo = getEnvString("ALERT_TO", "")

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogJSON = getEnvBool("LOG_JSON", true)
}
