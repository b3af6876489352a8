package services

import (
	"context"
	"fmt"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
)

// SeedResult reports what a seed run wrote.
type SeedResult struct {
	Written []string `json:"written"`
	Skipped int      `json:"skipped"`
}

// SeedService writes the static fallback table into the remote store.
type SeedService struct {
	store  repositories.ContentRepository
	logger *logging.ChanneledLogger
}

func NewSeedService(store repositories.ContentRepository, logger *logging.ChanneledLogger) *SeedService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &SeedService{store: store, logger: logger}
}

// Seed upserts every fallback entry the store lacks, or all of them when
// overwrite is set.
func (s *SeedService) Seed(ctx context.Context, overwrite bool) (*SeedResult, error) {
	names := content.FallbackNames()

	existing := make(map[string]bool)
	if !overwrite {
		rows, err := s.store.BulkRead(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("failed to read existing content: %w", err)
		}
		for _, row := range rows {
			existing[row.Name] = true
		}
	}

	result := &SeedResult{Written: make([]string, 0, len(names))}
	for _, name := range names {
		if existing[name] {
			result.Skipped++
			continue
		}
		value, _ := content.Fallback(name)
		if err := s.store.Upsert(ctx, name, value); err != nil {
			s.logger.Database().Error("Seed upsert failed", "name", name, "error", err.Error())
			return result, fmt.Errorf("failed to seed %s: %w", name, err)
		}
		result.Written = append(result.Written, name)
	}

	s.logger.Database().Info("Content seeded",
		"written", len(result.Written), "skipped", result.Skipped, "overwrite", overwrite)
	return result, nil
}
