package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/ankiform/internal/media"
)

// Speaker turns text into an audio attachment for the sentence or word
// audio slot.
type Speaker interface {
	// Speak synthesizes text and returns the audio as an attachment
	Speak(ctx context.Context, text string) (media.Attachment, error)

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured
	IsAvailable() error
}

// Config holds configuration for audio providers
type Config struct {
	Provider     string // Provider name: "openai"
	OutputFormat string // "mp3", "wav", "opus", "aac" or "flac"

	// OpenAI-specific settings
	OpenAIKey         string
	OpenAIBaseURL     string  // Overrides the API endpoint when set
	OpenAIModel       string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAIVoice       string  // "alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"
	OpenAISpeed       float64 // 0.25 to 4.0
	OpenAIInstruction string  // Voice instructions for gpt-4o-mini-tts model

	CacheDir    string
	EnableCache bool
	Logger      *slog.Logger
}

// DefaultProviderConfig returns default configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "openai",
		OutputFormat:      "mp3",
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAIVoice:       "alloy",
		OpenAISpeed:       1.0,
		OpenAIInstruction: "Speak slowly and clearly for language learners, with native pronunciation.",
	}
}

// NewProvider creates the audio provider named by config.Provider
func NewProvider(config *Config) (Speaker, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	switch config.Provider {
	case "", "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		provider, err := NewOpenAIProvider(config)
		if err != nil {
			return nil, err
		}
		return provider, nil

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", config.Provider)
	}
}

// SpeakerWithFallback wraps a primary speaker with a fallback option
type SpeakerWithFallback struct {
	primary  Speaker
	fallback Speaker
	logger   *slog.Logger
}

// NewSpeakerWithFallback creates a speaker that falls back to secondary if primary fails
func NewSpeakerWithFallback(primary, fallback Speaker, logger *slog.Logger) Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeakerWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Speak tries the primary speaker first, falls back to secondary on error
func (p *SpeakerWithFallback) Speak(ctx context.Context, text string) (media.Attachment, error) {
	att, err := p.primary.Speak(ctx, text)
	if err == nil {
		return att, nil
	}
	p.logger.Warn("audio: primary provider failed",
		slog.String("provider", p.primary.Name()),
		slog.String("fallback", p.fallback.Name()),
		slog.String("error", err.Error()))
	return p.fallback.Speak(ctx, text)
}

// Name returns the provider name
func (p *SpeakerWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// IsAvailable checks if at least one provider is available
func (p *SpeakerWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: %w", errors.Join(primaryErr, fallbackErr))
}
