// Package repositories defines the remote content store contracts. The cache
// layer depends only on these two operations and never on how a store is
// reached (SQL database, Supabase REST, test fake).
package repositories

import (
	"context"
	"errors"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
)

// ErrUnauthorized marks failures caused by credentials or row-level
// permissions. Retrying them cannot succeed until configuration changes.
var ErrUnauthorized = errors.New("unauthorized: permission denied by content store")

// ContentReader reads many content rows in one round trip. Missing names are
// simply absent from the result.
type ContentReader interface {
	BulkRead(ctx context.Context, names []string) ([]*content.ContentRow, error)
}

// ContentWriter writes one content value, keyed by name. Last write wins.
type ContentWriter interface {
	Upsert(ctx context.Context, name, value string) error
}

// ContentRepository is a remote store supporting both operations.
type ContentRepository interface {
	ContentReader
	ContentWriter
}
