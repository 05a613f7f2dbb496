package audio

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/ankiform/internal/media"
)

const maxStemRunes = 40

// OpenAIProvider implements Speaker with OpenAI TTS
type OpenAIProvider struct {
	client      *openai.Client
	config      *Config
	cacheDir    string
	enableCache bool
	logger      *slog.Logger
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(config *Config) (*OpenAIProvider, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	defaults := DefaultProviderConfig()
	cfg := *config
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = defaults.OpenAIModel
	}
	if cfg.OpenAIVoice == "" {
		cfg.OpenAIVoice = defaults.OpenAIVoice
	}
	if cfg.OpenAISpeed == 0 {
		cfg.OpenAISpeed = defaults.OpenAISpeed
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaults.OutputFormat
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}

	provider := &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		config:      &cfg,
		cacheDir:    cfg.CacheDir,
		enableCache: cfg.EnableCache,
		logger:      cfg.Logger,
	}
	if provider.logger == nil {
		provider.logger = slog.Default()
	}

	// Create cache directory if caching is enabled
	if provider.enableCache && provider.cacheDir != "" {
		if err := os.MkdirAll(provider.cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return provider, nil
}

// Speak synthesizes text with OpenAI TTS
func (p *OpenAIProvider) Speak(ctx context.Context, text string) (media.Attachment, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	text = p.preprocessText(text)
	name := p.fileName(text)

	// Check cache first
	if p.enableCache && p.cacheDir != "" {
		if data, err := os.ReadFile(p.getCacheFilePath(text)); err == nil {
			p.logger.Debug("audio: cache hit", slog.String("text", text))
			return media.FromBytes(name, data), nil
		}
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.config.OpenAIModel),
		Input:          text,
		Voice:          openai.SpeechVoice(p.config.OpenAIVoice),
		Speed:          p.config.OpenAISpeed,
		ResponseFormat: responseFormat(p.config.OutputFormat),
	}
	if p.supportsInstructions() {
		req.Instructions = p.config.OpenAIInstruction
	}

	p.logger.Debug("audio: synthesizing",
		slog.String("model", p.config.OpenAIModel),
		slog.String("voice", p.config.OpenAIVoice),
		slog.String("text", text))

	response, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "does not have access to model") && p.supportsInstructions() {
			return nil, fmt.Errorf("OpenAI TTS API error: %w\nNote: The %s model requires access. Try tts-1-hd instead", err, p.config.OpenAIModel)
		}
		return nil, fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	data, err := io.ReadAll(response)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no audio data received from OpenAI")
	}

	// Cache the result if caching is enabled
	if p.enableCache && p.cacheDir != "" {
		if err := p.writeCache(text, data); err != nil {
			p.logger.Warn("audio: failed to cache audio", slog.String("error", err.Error()))
		}
	}

	return media.FromBytes(name, data), nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the OpenAI API is configured
func (p *OpenAIProvider) IsAvailable() error {
	if p.config.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}
	return nil
}

func (p *OpenAIProvider) supportsInstructions() bool {
	return p.config.OpenAIInstruction != "" &&
		(p.config.OpenAIModel == "gpt-4o-mini-tts" || p.config.OpenAIModel == "gpt-4o-mini-audio-preview")
}

// preprocessText removes punctuation that should not be spoken from single
// words. Sentences keep their punctuation for natural intonation.
func (p *OpenAIProvider) preprocessText(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.ContainsAny(cleaned, " \t\n") {
		return cleaned
	}
	return strings.TrimSpace(strings.Trim(cleaned, "!?.,;:\"'()[]{}-—–"))
}

// fileName derives the attachment name from the spoken text.
func (p *OpenAIProvider) fileName(text string) string {
	text = strings.TrimFunc(text, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	stem := []rune(strings.Join(strings.Fields(text), "_"))
	if len(stem) > maxStemRunes {
		stem = stem[:maxStemRunes]
	}
	return media.SanitizeFilename(string(stem)) + "." + p.config.OutputFormat
}

// getCacheFilePath generates a cache file path for the given text
func (p *OpenAIProvider) getCacheFilePath(text string) string {
	// Create a hash of the text and settings
	h := md5.New()
	h.Write([]byte(text))
	h.Write([]byte(p.config.OpenAIModel))
	h.Write([]byte(p.config.OpenAIVoice))
	h.Write([]byte(fmt.Sprintf("%.2f", p.config.OpenAISpeed)))
	if p.supportsInstructions() {
		h.Write([]byte(p.config.OpenAIInstruction))
	}
	hash := hex.EncodeToString(h.Sum(nil))

	// Use first 2 chars as subdirectory for better file system performance
	return filepath.Join(p.cacheDir, hash[:2], hash[2:]+"."+p.config.OutputFormat)
}

func (p *OpenAIProvider) writeCache(text string, data []byte) error {
	path := p.getCacheFilePath(text)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClearCache removes all cached audio files
func (p *OpenAIProvider) ClearCache() error {
	if p.cacheDir == "" {
		return nil
	}
	return os.RemoveAll(p.cacheDir)
}

// GetCacheStats returns cache statistics
func (p *OpenAIProvider) GetCacheStats() (fileCount int, totalSize int64, err error) {
	if !p.enableCache || p.cacheDir == "" {
		return 0, 0, nil
	}

	err = filepath.Walk(p.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			fileCount++
			totalSize += info.Size()
		}
		return nil
	})
	return fileCount, totalSize, err
}

func responseFormat(format string) openai.SpeechResponseFormat {
	switch strings.ToLower(format) {
	case "wav":
		return openai.SpeechResponseFormatWav
	case "opus":
		return openai.SpeechResponseFormatOpus
	case "aac":
		return openai.SpeechResponseFormatAac
	case "flac":
		return openai.SpeechResponseFormatFlac
	default:
		return openai.SpeechResponseFormatMp3
	}
}
