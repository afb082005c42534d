package platforms

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"
)

// manifestSchema constrains platform.yaml files beyond what decoding checks:
// value types, non-negative limits, and a lowercase platform name.
const manifestSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
		"display_name": {"type": "string"},
		"version": {"type": "string"},
		"max_length": {"type": "integer", "minimum": 0},
		"max_hashtags": {"type": "integer", "minimum": 0},
		"allow_emojis": {"type": "boolean"},
		"style_hint": {"type": "string"}
	},
	"required": ["name", "version"]
}`

// validateManifest checks raw manifest YAML against the embedded JSON schema.
func validateManifest(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse platform manifest: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile([]byte(manifestSchema))
	if err != nil {
		return fmt.Errorf("failed to compile manifest schema: %w", err)
	}

	result := schema.Validate(doc)
	if !result.IsValid() {
		var errorMessages []string
		for field, evalErr := range result.Errors {
			errorMessages = append(errorMessages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		return fmt.Errorf("manifest validation failed: %s", strings.Join(errorMessages, "; "))
	}

	return nil
}
