// Package llm provides the text-generation backend used to explain page and
// repository content.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short explanations
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: structured output over source files
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// DefaultTemperature keeps output stable across re-analysis runs.
const DefaultTemperature = 0.1

// DefaultRequestTimeout bounds a single generation call.
const DefaultRequestTimeout = 60 * time.Second

// DefaultMaxOutputTokens caps one function-map response.
const DefaultMaxOutputTokens = 2048

// DefaultSystemInstruction frames every request.
const DefaultSystemInstruction = "You label the parts of web pages and source files with short plain-language descriptions for learners. You answer with JSON only."

// Config holds the model configuration for the application
type Config struct {
	Provider          Provider
	Models            map[ModelTier]string
	Temperature       float32
	RequestTimeout    time.Duration
	MaxOutputTokens   int32 // 0 leaves the provider default
	SystemInstruction string
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature:       DefaultTemperature,
		RequestTimeout:    DefaultRequestTimeout,
		MaxOutputTokens:   DefaultMaxOutputTokens,
		SystemInstruction: DefaultSystemInstruction,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
