// Package platforms manages publishing-platform definitions: the per-target
// constraints (length, hashtag and emoji allowance, style) the adapter
// enforces. Definitions are discovered from platform.yaml manifests at
// startup, validated, synced to the database, and served from an in-memory
// registry.
package platforms

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition describes one publishing target's constraints.
type Definition struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Version     string `yaml:"version"`
	MaxLength   int    `yaml:"max_length"`
	MaxHashtags int    `yaml:"max_hashtags"`
	AllowEmojis bool   `yaml:"allow_emojis"`
	StyleHint   string `yaml:"style_hint"`
}

// LoadManifest reads and parses a platform.yaml file with strict validation.
// Unknown YAML fields are rejected (via KnownFields), and the manifest is
// additionally checked against the embedded JSON schema.
func LoadManifest(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform manifest: %w", err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*Definition, error) {
	if err := validateManifest(data); err != nil {
		return nil, err
	}

	var def Definition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse platform manifest: %w", err)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("platform manifest missing required field: name")
	}
	if def.Version == "" {
		return nil, fmt.Errorf("platform manifest missing required field: version")
	}
	if def.DisplayName == "" {
		def.DisplayName = def.Name
	}

	return &def, nil
}
