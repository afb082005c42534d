package platforms

import (
	"log/slog"
	"os"

	"gorm.io/gorm"
)

// Init discovers platform definitions, syncs their metadata to the database,
// and returns a populated registry. A missing or empty manifest directory
// falls back to the builtin platform set.
func Init(db *gorm.DB, dir string) (*Registry, error) {
	var defs []*Definition

	if dir != "" {
		discovered, err := Discover(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			slog.Info("Platform directory not found, using builtin platforms", "dir", dir)
		} else {
			defs = discovered
		}
	}
	if len(defs) == 0 {
		defs = Builtins()
	}

	registry := NewRegistry()
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			slog.Warn("Duplicate platform name, skipping", "platform", def.Name, "error", err.Error())
			continue
		}
	}

	slog.Info("Platforms loaded", "count", registry.Count())

	for _, def := range registry.List() {
		if err := syncToDB(db, def); err != nil {
			slog.Warn("Failed to sync platform to database", "platform", def.Name, "error", err.Error())
			continue
		}
	}

	return registry, nil
}

// syncToDB persists or updates a platform definition. Upsert pattern: create
// if new, update constraints if already present. The Enabled flag is operator
// state and is never overwritten by a sync.
func syncToDB(db *gorm.DB, def *Definition) error {
	var row PlatformDefinition
	result := db.Where("name = ?", def.Name).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = PlatformDefinition{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Version:     def.Version,
			MaxLength:   def.MaxLength,
			MaxHashtags: def.MaxHashtags,
			AllowEmojis: def.AllowEmojis,
			StyleHint:   def.StyleHint,
			Enabled:     true,
		}
		return db.Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	updates := map[string]interface{}{
		"display_name": def.DisplayName,
		"version":      def.Version,
		"max_length":   def.MaxLength,
		"max_hashtags": def.MaxHashtags,
		"allow_emojis": def.AllowEmojis,
		"style_hint":   def.StyleHint,
	}
	return db.Model(&row).Updates(updates).Error
}
