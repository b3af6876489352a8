package content

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayoutResolvesFromFallbacks(t *testing.T) {
	layout, err := DefaultLayout()
	if err != nil {
		t.Fatalf("DefaultLayout() error = %v", err)
	}
	if len(layout.Sections) == 0 {
		t.Fatal("DefaultLayout() has no sections")
	}

	// Every name the page waits on must have static copy, otherwise the page
	// would depend on the network to become ready.
	for _, name := range layout.ContentNames() {
		if _, ok := Fallback(name); !ok {
			t.Errorf("layout references %q which has no fallback", name)
		}
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{name: "empty", data: "", want: 0},
		{name: "comment only", data: "# nothing\n", want: 0},
		{name: "two sections", data: "sections:\n  - name: a\n    content: [x]\n  - name: b\n    content: [y, z]\n", want: 2},
		{name: "unknown field", data: "sections:\n  - name: a\n    colour: red\n", wantErr: true},
		{name: "missing name", data: "sections:\n  - content: [x]\n", wantErr: true},
		{name: "duplicate", data: "sections:\n  - name: a\n  - name: a\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := ParseLayout([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLayout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(layout.Sections) != tt.want {
				t.Fatalf("sections = %d, want %d", len(layout.Sections), tt.want)
			}
		})
	}
}

func TestLoadLayoutMissingFileUsesDefault(t *testing.T) {
	layout, err := LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadLayout(missing) error = %v", err)
	}
	def, _ := DefaultLayout()
	if len(layout.Sections) != len(def.Sections) {
		t.Fatalf("sections = %d, want default %d", len(layout.Sections), len(def.Sections))
	}
}

func TestLoadLayoutFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("sections:\n  - name: hero\n    content: [hero_title, hero_title]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	layout, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}
	if names := layout.ContentNames(); len(names) != 1 || names[0] != "hero_title" {
		t.Fatalf("ContentNames() = %v, want [hero_title]", names)
	}
}
