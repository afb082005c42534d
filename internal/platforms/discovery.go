package platforms

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Discover scans dir for *.yaml platform manifests. Invalid manifests are
// logged and skipped so one bad file cannot take down startup.
func Discover(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var defs []*Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		def, err := LoadManifest(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Warn("Skipping invalid platform manifest", "file", entry.Name(), "error", err.Error())
			continue
		}
		defs = append(defs, def)
	}

	return defs, nil
}
