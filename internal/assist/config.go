package assist

import (
	"fmt"
	"log/slog"
)

// Config selects and configures the completer behind a Generator.
type Config struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	// OpenAIBaseURL overrides the OpenAI endpoint when set.
	OpenAIBaseURL string
	GeminiKey     string
	GeminiModel   string
	Logger        *slog.Logger
}

// New creates a generator for config.Provider. The default provider is
// OpenAI.
func New(config Config) (*Generator, error) {
	switch config.Provider {
	case "", ProviderOpenAI:
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewGenerator(NewOpenAICompleter(config.OpenAIKey, config.OpenAIModel, config.OpenAIBaseURL), config.Logger), nil
	case ProviderGemini:
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGenerator(NewGeminiCompleter(config.GeminiKey, config.GeminiModel), config.Logger), nil
	default:
		return nil, fmt.Errorf("unknown assist provider: %s", config.Provider)
	}
}
