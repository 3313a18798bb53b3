package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fallbackCatalog is the bundled session list used when the remote catalog is
// unreachable or empty.
type fallbackCatalog struct {
	Sessions []Session `yaml:"sessions"`
}

// LoadFallbackCatalog reads the bundled catalog from a YAML file.
func LoadFallbackCatalog(path string) ([]Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback catalog %s: %w", path, err)
	}

	var catalog fallbackCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse fallback catalog %s: %w", path, err)
	}

	if len(catalog.Sessions) == 0 {
		return nil, fmt.Errorf("fallback catalog %s contains no sessions", path)
	}

	for i, s := range catalog.Sessions {
		if s.ID == "" {
			return nil, fmt.Errorf("fallback catalog entry %d has no id", i)
		}
		if s.DurationMinutes <= 0 {
			return nil, fmt.Errorf("fallback catalog entry %s has non-positive duration", s.ID)
		}
		if !s.Category.Valid() {
			return nil, fmt.Errorf("fallback catalog entry %s has unknown category %q", s.ID, s.Category)
		}
	}

	return catalog.Sessions, nil
}
