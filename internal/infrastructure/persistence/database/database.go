// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// Options selects and tunes a SQL connection.
type Options struct {
	Driver          string // DriverSQLite or DriverLibSQL
	SQLitePath      string
	TursoURL        string
	TursoAuthToken  string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// NewOptions builds SQL options from pkg/config. storeDriver is the
// STORE_DRIVER value ("sqlite" or "turso").
func NewOptions(storeDriver string) Options {
	opts := Options{
		Driver:          DriverSQLite,
		SQLitePath:      config.SQLitePath,
		TursoURL:        config.TursoDatabaseURL,
		TursoAuthToken:  config.TursoAuthToken,
		MaxOpenConns:    config.DBMaxOpenConns,
		MaxIdleConns:    config.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(config.DBConnMaxIdleMinutes) * time.Minute,
	}
	if storeDriver == "turso" {
		opts.Driver = DriverLibSQL
	}
	return opts
}

// DataSourceName returns the DSN for the configured driver.
func (o Options) DataSourceName() (string, error) {
	switch o.Driver {
	case DriverSQLite:
		if o.SQLitePath == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", o.SQLitePath), nil
	case DriverLibSQL:
		if o.TursoURL == "" {
			return "", fmt.Errorf("turso database url is required")
		}
		if o.TursoAuthToken == "" {
			return o.TursoURL, nil
		}
		return fmt.Sprintf("%s?authToken=%s", o.TursoURL, o.TursoAuthToken), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", o.Driver)
}

// Open establishes a pooled connection and verifies it with a ping.
func Open(opts Options, logger *logging.ChanneledLogger) (*DB, error) {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	dsn, err := opts.DataSourceName()
	if err != nil {
		return nil, err
	}
	if opts.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := NewConnectionWithLogger(opts.Driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	return db, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	if duration > GetSlowQueryThreshold() {
		logger.LogSlowQuery("DATABASE_CONNECTION", duration)
	}

	return &DB{DB: db, Driver: driverName}, nil
}
