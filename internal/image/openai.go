package image

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/ankiform/internal/media"
)

// Illustrator generates a picture for a word.
type Illustrator interface {
	Illustrate(ctx context.Context, word, hint string) (media.Attachment, error)
}

// OpenAIConfig configures the OpenAI image generator
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string // Overrides the API endpoint when set
	Model    string // "dall-e-2" or "dall-e-3"
	Size     string // e.g. "512x512"
	Quality  string // "standard" or "hd" (dall-e-3 only)
	Style    string // "natural" or "vivid" (dall-e-3 only)
	CacheDir string // Generated images are kept here when set
	Logger   *slog.Logger
}

// OpenAIClient generates flashcard illustrations with the OpenAI image API
type OpenAIClient struct {
	client   *openai.Client
	apiKey   string
	model    string
	size     string
	quality  string
	style    string
	cacheDir string
	logger   *slog.Logger
}

// NewOpenAIClient creates a new image generator. A missing API key only
// fails when Illustrate is called.
func NewOpenAIClient(config *OpenAIConfig) *OpenAIClient {
	if config == nil {
		config = &OpenAIConfig{}
	}
	c := &OpenAIClient{
		apiKey:   config.APIKey,
		model:    config.Model,
		size:     config.Size,
		quality:  config.Quality,
		style:    config.Style,
		cacheDir: config.CacheDir,
		logger:   config.Logger,
	}
	if c.model == "" {
		c.model = openai.CreateImageModelDallE2
	}
	if c.size == "" {
		c.size = openai.CreateImageSize512x512
	}
	if c.quality == "" {
		c.quality = openai.CreateImageQualityStandard
	}
	if c.style == "" {
		c.style = openai.CreateImageStyleNatural
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	c.client = openai.NewClientWithConfig(clientConfig)
	return c
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Illustrate generates a picture for word. hint is an optional English
// meaning or sentence that disambiguates the word.
func (c *OpenAIClient) Illustrate(ctx context.Context, word, hint string) (media.Attachment, error) {
	if c.apiKey == "" {
		return nil, &SearchError{Provider: "openai", Code: "NO_API_KEY", Message: "OpenAI API key not configured"}
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("a word is required")
	}

	name := sanitizeFileName(word) + "_openai.png"
	prompt := c.createEducationalPrompt(word, strings.TrimSpace(hint))

	if c.cacheDir != "" {
		if data, err := os.ReadFile(c.getCacheFilePath(prompt)); err == nil {
			c.logger.Debug("image: cache hit", slog.String("word", word))
			return media.FromBytes(name, data), nil
		}
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           c.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}
	if c.model == openai.CreateImageModelDallE3 {
		req.Quality = c.quality
		req.Style = c.style
	}

	c.logger.Debug("image: generating", slog.String("model", c.model), slog.String("word", word))
	resp, err := c.client.CreateImage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI image API error: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &SearchError{Provider: "openai", Code: "NO_IMAGE", Message: "no image returned"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if c.cacheDir != "" {
		if err := c.writeCache(prompt, data); err != nil {
			c.logger.Warn("image: failed to cache image", slog.String("error", err.Error()))
		}
	}

	return media.FromBytes(name, data), nil
}

// createEducationalPrompt builds a prompt for a simple flashcard picture
func (c *OpenAIClient) createEducationalPrompt(word, hint string) string {
	subject := word
	if hint != "" {
		subject = fmt.Sprintf("%s (meaning: %s)", word, hint)
	}
	return fmt.Sprintf("A simple, clear educational flashcard illustration of %s. "+
		"A single subject on a plain background, no text or letters in the image.", subject)
}

// getCacheFilePath generates a cache file path for the given prompt
func (c *OpenAIClient) getCacheFilePath(prompt string) string {
	h := md5.New()
	h.Write([]byte(prompt))
	h.Write([]byte(c.model))
	h.Write([]byte(c.size))
	h.Write([]byte(c.quality))
	h.Write([]byte(c.style))
	hash := hex.EncodeToString(h.Sum(nil))

	return filepath.Join(c.cacheDir, hash[:2], hash[2:]+".png")
}

func (c *OpenAIClient) writeCache(prompt string, data []byte) error {
	path := c.getCacheFilePath(prompt)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
