package services

import "github.com/AtRiskMedia/folio-go/internal/domain/entities/content"

// ContentSource exposes locally held content values.
type ContentSource interface {
	LocalContent(name string) (string, bool)
}

// placeholderSource is implemented by sources that keep fallback text in
// local state after a failed load.
type placeholderSource interface {
	IsPlaceholder(name string) bool
}

// StableContentView resolves names against local content, then the static
// fallback table. An empty local value counts as absent, so a name with a
// fallback never resolves to "".
type StableContentView struct {
	source ContentSource
}

func NewStableContentView(source ContentSource) *StableContentView {
	return &StableContentView{source: source}
}

func (v *StableContentView) local(name string) (string, bool) {
	if v.source == nil {
		return "", false
	}
	value, ok := v.source.LocalContent(name)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// Get returns the local value, else the fallback, else "".
func (v *StableContentView) Get(name string) string {
	if value, ok := v.local(name); ok {
		return value
	}
	return content.FallbackOrEmpty(name)
}

// GetMany resolves every name.
func (v *StableContentView) GetMany(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = v.Get(name)
	}
	return out
}

// IsStatic reports whether Get(name) is not backed by loaded content.
// Fallback text held locally after a failed load still counts as static.
func (v *StableContentView) IsStatic(name string) bool {
	if _, ok := v.local(name); !ok {
		return true
	}
	if p, ok := v.source.(placeholderSource); ok {
		return p.IsPlaceholder(name)
	}
	return false
}
