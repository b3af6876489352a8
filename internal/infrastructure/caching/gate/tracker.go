package gate

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
)

// RequestTracker counts attempts for one request signature.
type RequestTracker struct {
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"lastAttempt"`
	Blocked     bool      `json:"blocked"`
}

// Signature normalizes a name set: sorted, de-duplicated and comma-joined.
// Empty names are dropped.
func Signature(names []string) string {
	return strings.Join(normalize(names), ",")
}

func normalize(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var nonRetryableMarkers = []string{"auth", "permission", "jwt", "unauthorized"}

// IsNonRetryable reports whether err indicates a credential or permission
// problem that retrying cannot fix.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, repositories.ErrUnauthorized) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonRetryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
