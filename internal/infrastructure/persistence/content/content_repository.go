// Package content provides the SQL content repository
package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// ContentRepository reads and writes site_content rows over database/sql.
type ContentRepository struct {
	db     *sql.DB
	logger *logging.ChanneledLogger
	now    func() time.Time
}

func NewContentRepository(db *sql.DB, logger *logging.ChanneledLogger) *ContentRepository {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &ContentRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// BulkRead loads the rows for names in one query. Missing names are skipped.
func (r *ContentRepository) BulkRead(ctx context.Context, names []string) ([]*content.ContentRow, error) {
	if len(names) == 0 {
		return []*content.ContentRow{}, nil
	}

	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = name
	}
	query := fmt.Sprintf(`SELECT name, content, updated_at FROM site_content WHERE name IN (%s)`,
		strings.Join(placeholders, ","))

	start := time.Now()
	r.logger.Database().Debug("Executing content bulk read", "count", len(names))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Content bulk read failed", "error", err.Error(), "count", len(names))
		return nil, fmt.Errorf("failed to query content: %w", err)
	}
	defer rows.Close()

	var result []*content.ContentRow
	for rows.Next() {
		var row content.ContentRow
		var updatedAt string
		if err := rows.Scan(&row.Name, &row.Content, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			row.UpdatedAt = ts
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content rows: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Content bulk read completed", "requested", len(names), "found", len(result), "duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return result, nil
}

// Upsert writes value for name, replacing any existing row.
func (r *ContentRepository) Upsert(ctx context.Context, name, value string) error {
	query := `INSERT INTO site_content (name, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`

	start := time.Now()
	r.logger.Database().Debug("Executing content upsert", "name", name)

	_, err := r.db.ExecContext(ctx, query, name, value, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		r.logger.Database().Error("Content upsert failed", "error", err.Error(), "name", name)
		return fmt.Errorf("failed to upsert content %q: %w", name, err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Content upsert completed", "name", name, "duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration)
	}
	return nil
}

// ListNames returns every stored name in order.
func (r *ContentRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM site_content ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list content names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan content name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
