package content

import "testing"

func TestFallbackTableHasNoEmptyValues(t *testing.T) {
	for _, name := range FallbackNames() {
		v, ok := Fallback(name)
		if !ok {
			t.Fatalf("Fallback(%q) ok = false for listed name", name)
		}
		if v == "" {
			t.Errorf("Fallback(%q) is empty", name)
		}
	}
}

func TestFallbacksReturnsCopy(t *testing.T) {
	all := Fallbacks()
	all["hero_title"] = "mutated"

	if v, _ := Fallback("hero_title"); v == "mutated" {
		t.Fatal("mutating Fallbacks() result changed the static table")
	}
}

func TestFallbackForUnknownNames(t *testing.T) {
	got := FallbackFor([]string{"hero_title", "no_such_key"})
	if got["hero_title"] == "" {
		t.Error("hero_title should resolve to static copy")
	}
	if v, ok := got["no_such_key"]; !ok || v != "" {
		t.Errorf("no_such_key = %q (present=%v), want empty string present", v, ok)
	}
}
