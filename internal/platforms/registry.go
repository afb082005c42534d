package platforms

import (
	"fmt"
	"sort"
)

// Registry holds platform definitions in memory, indexed by platform name.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates a new empty platform registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition to the registry.
// Returns an error if a platform with the same name is already registered.
func (r *Registry) Register(def *Definition) error {
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("platform already registered: %s", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get retrieves a platform definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// List returns all definitions sorted by name for deterministic ordering.
func (r *Registry) List() []*Definition {
	defs := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Count returns the number of registered platforms.
func (r *Registry) Count() int {
	return len(r.defs)
}

// Names returns the registered platform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins returns the default platform set used when no manifest directory
// is configured.
func Builtins() []*Definition {
	return []*Definition{
		{
			Name:        "twitter",
			DisplayName: "Twitter / X",
			Version:     "1.0.0",
			MaxLength:   280,
			MaxHashtags: 2,
			AllowEmojis: true,
			StyleHint:   "punchy and conversational",
		},
		{
			Name:        "linkedin",
			DisplayName: "LinkedIn",
			Version:     "1.0.0",
			MaxLength:   3000,
			MaxHashtags: 5,
			AllowEmojis: false,
			StyleHint:   "professional but personal",
		},
		{
			Name:        "instagram",
			DisplayName: "Instagram",
			Version:     "1.0.0",
			MaxLength:   2200,
			MaxHashtags: 10,
			AllowEmojis: true,
			StyleHint:   "visual and expressive",
		},
	}
}
