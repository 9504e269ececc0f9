// Parses the sync manifest: which sources to fetch and how their
// properties map onto logical fields.

package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig identifies one source to fetch and the type tag applied to
// its records.
type SourceConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Name string `yaml:"name,omitempty"`
}

// Manifest is the parsed sync manifest file.
type Manifest struct {
	Version int                 `yaml:"version"`
	Sources []SourceConfig      `yaml:"sources"`
	Mapping *Config             `yaml:"mapping,omitempty"`
	Aliases map[string][]string `yaml:"aliases,omitempty"`
}

// ParseManifest reads and parses a manifest from a file.
// The path is provided by the CLI user, so file inclusion is expected.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified manifest path
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifestBytes(data)
}

// ParseManifestBytes parses a manifest from bytes.
func ParseManifestBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks that the manifest is well-formed.
func (m *Manifest) Validate() error {
	if m.Version != 1 {
		return fmt.Errorf("unsupported manifest version: %d", m.Version)
	}
	if len(m.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(m.Sources))
	for i := range m.Sources {
		s := &m.Sources[i]
		if s.ID == "" {
			return fmt.Errorf("source %d: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %d: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Type == "" {
			return fmt.Errorf("source %q: type is required", s.ID)
		}
	}
	for field := range m.Aliases {
		if !validLogicalField(LogicalField(field)) {
			return fmt.Errorf("aliases: unknown logical field %q", field)
		}
	}
	if m.Mapping != nil {
		for field := range m.Mapping.Fields {
			if !validLogicalField(field) {
				return fmt.Errorf("mapping: unknown logical field %q", field)
			}
		}
		for srcID, over := range m.Mapping.Overrides {
			if !seen[srcID] {
				return fmt.Errorf("mapping: override for unknown source %q", srcID)
			}
			for field := range over {
				if !validLogicalField(field) {
					return fmt.Errorf("mapping: source %q: unknown logical field %q", srcID, field)
				}
			}
		}
	}
	return nil
}

func validLogicalField(f LogicalField) bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// EffectiveMapping returns the manifest's mapping config, or the defaults
// when the manifest does not carry one.
func (m *Manifest) EffectiveMapping() *Config {
	if m.Mapping != nil {
		return m.Mapping
	}
	return DefaultConfig()
}

// EffectiveAliases returns the built-in alias table merged with any
// manifest overrides.
func (m *Manifest) EffectiveAliases() AliasTable {
	if len(m.Aliases) == 0 {
		return DefaultAliases()
	}
	over := make(AliasTable, len(m.Aliases))
	for field, names := range m.Aliases {
		over[LogicalField(field)] = names
	}
	return DefaultAliases().Merge(over)
}
