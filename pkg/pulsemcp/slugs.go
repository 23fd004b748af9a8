package pulsemcp

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed slugs.yaml
var embeddedSlugs []byte

type slugFile struct {
	Slugs []string `yaml:"slugs"`
}

// DefaultSlugs returns the curated slug list shipped with the binary.
func DefaultSlugs() []string {
	slugs, err := ParseSlugs(embeddedSlugs)
	if err != nil {
		panic(fmt.Sprintf("embedded slugs.yaml is invalid: %v", err))
	}
	return slugs
}

// LoadSlugs reads a slug list from a YAML file with a top-level "slugs"
// sequence. An empty path returns DefaultSlugs.
func LoadSlugs(path string) ([]string, error) {
	if path == "" {
		return DefaultSlugs(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slugs file: %w", err)
	}
	slugs, err := ParseSlugs(data)
	if err != nil {
		return nil, fmt.Errorf("parse slugs file %s: %w", path, err)
	}
	return slugs, nil
}

// ParseSlugs decodes a slug list. Entries are trimmed; blanks and repeats
// are dropped, keeping the first occurrence.
func ParseSlugs(data []byte) ([]string, error) {
	var f slugFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(f.Slugs))
	slugs := make([]string, 0, len(f.Slugs))
	for _, s := range f.Slugs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		slugs = append(slugs, s)
	}
	return slugs, nil
}
