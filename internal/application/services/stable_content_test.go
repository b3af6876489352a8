package services

import (
	"testing"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
)

type mapSource map[string]string

func (m mapSource) LocalContent(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func TestStableViewNeverBlankForFallbackKeys(t *testing.T) {
	view := NewStableContentView(mapSource{"hero_title": ""})
	for _, name := range content.FallbackNames() {
		if view.Get(name) == "" {
			t.Fatalf("Get(%q) = \"\", want fallback", name)
		}
		if !view.IsStatic(name) {
			t.Fatalf("IsStatic(%q) = false with no loaded content", name)
		}
	}
}

func TestStableViewPrefersLoadedContent(t *testing.T) {
	view := NewStableContentView(mapSource{"hero_title": "Loaded"})

	got := view.GetMany([]string{"hero_title", "hero_subtitle", "unknown"})
	fallback, _ := content.Fallback("hero_subtitle")
	if got["hero_title"] != "Loaded" || got["hero_subtitle"] != fallback || got["unknown"] != "" {
		t.Fatalf("GetMany() = %v", got)
	}
	if view.IsStatic("hero_title") {
		t.Fatal("IsStatic(hero_title) = true for loaded content")
	}
}
