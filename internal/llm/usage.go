package llm

import "encoding/json"

// usageNormalizer converts one provider's raw usage payload into the
// canonical Usage shape.
type usageNormalizer func(raw json.RawMessage) Usage

var usageNormalizers = map[string]usageNormalizer{
	"openai":    normalizeOpenAIUsage,
	"stub":      normalizeOpenAIUsage,
	"anthropic": normalizeAnthropicUsage,
}

// NormalizeUsage converts a provider-specific usage payload into the
// canonical shape. Unknown providers and malformed payloads normalize to
// zeroes; usage is telemetry and must never fail a generation.
func NormalizeUsage(provider string, raw json.RawMessage) Usage {
	if len(raw) == 0 {
		return Usage{}
	}
	normalize, ok := usageNormalizers[provider]
	if !ok {
		return Usage{}
	}
	return normalize(raw)
}

func normalizeOpenAIUsage(raw json.RawMessage) Usage {
	var payload struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Usage{}
	}
	total := payload.TotalTokens
	if total == 0 {
		total = payload.PromptTokens + payload.CompletionTokens
	}
	return Usage{
		PromptTokens:     payload.PromptTokens,
		CompletionTokens: payload.CompletionTokens,
		TotalTokens:      total,
	}
}

func normalizeAnthropicUsage(raw json.RawMessage) Usage {
	var payload struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     payload.InputTokens,
		CompletionTokens: payload.OutputTokens,
		TotalTokens:      payload.InputTokens + payload.OutputTokens,
	}
}
