package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed layout.yaml
var defaultLayout []byte

// SectionLayout names a page section and the content it depends on.
type SectionLayout struct {
	Name    string   `yaml:"name"`
	Content []string `yaml:"content"`
}

// PageLayout is the ordered list of sections on the page.
type PageLayout struct {
	Sections []SectionLayout `yaml:"sections"`
}

// ContentNames returns every content name referenced by the layout, in
// section order, without duplicates.
func (l *PageLayout) ContentNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, section := range l.Sections {
		for _, name := range section.Content {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// DefaultLayout parses the embedded layout.
func DefaultLayout() (*PageLayout, error) {
	return ParseLayout(defaultLayout)
}

// LoadLayout reads a layout file at path. An empty path or a missing file
// yields the embedded default.
func LoadLayout(path string) (*PageLayout, error) {
	if path == "" {
		return DefaultLayout()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultLayout()
		}
		return nil, fmt.Errorf("layout: reading %s: %w", path, err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes YAML layout data, rejecting unknown fields and
// sections without a name.
func ParseLayout(data []byte) (*PageLayout, error) {
	layout := &PageLayout{}
	if len(data) == 0 {
		return layout, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(layout); err != nil {
		if errors.Is(err, io.EOF) {
			return layout, nil
		}
		return nil, fmt.Errorf("layout: parsing: %w", err)
	}

	seen := make(map[string]bool)
	for i, section := range layout.Sections {
		if section.Name == "" {
			return nil, fmt.Errorf("layout: section %d has no name", i)
		}
		if seen[section.Name] {
			return nil, fmt.Errorf("layout: duplicate section %q", section.Name)
		}
		seen[section.Name] = true
	}
	return layout, nil
}
