package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrNoAPIKey is returned when no OpenAI API key is configured.
var ErrNoAPIKey = errors.New("no OpenAI API key configured (set OPENAI_API_KEY)")

// Catalog groups model IDs by the provider they can serve.
type Catalog struct {
	Speech []string
	Image  []string
	Chat   []string
}

// Lister lists the models available to an API key.
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a lister. baseURL may be empty for the public API.
func NewLister(apiKey, baseURL string) *Lister {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Lister{apiKey: apiKey, client: openai.NewClientWithConfig(cfg)}
}

// List fetches the models and sorts them into a catalog.
func (l *Lister) List(ctx context.Context) (Catalog, error) {
	var c Catalog
	if l.apiKey == "" {
		return c, ErrNoAPIKey
	}

	resp, err := l.client.ListModels(ctx)
	if err != nil {
		return c, fmt.Errorf("failed to list models: %w", err)
	}
	for _, m := range resp.Models {
		id := m.ID
		switch {
		case strings.Contains(id, "tts") || strings.Contains(id, "audio"):
			c.Speech = append(c.Speech, id)
		case strings.Contains(id, "dall-e") || strings.Contains(id, "image"):
			c.Image = append(c.Image, id)
		case strings.Contains(id, "gpt") || strings.Contains(id, "chat"):
			c.Chat = append(c.Chat, id)
		}
	}
	slices.Sort(c.Speech)
	slices.Sort(c.Image)
	slices.Sort(c.Chat)
	return c, nil
}

// Write prints the catalog grouped by use.
func (c Catalog) Write(w io.Writer) {
	groups := []struct {
		title string
		ids   []string
	}{
		{"Audio (speech) models", c.Speech},
		{"Image models", c.Image},
		{"Assistant (chat) models", c.Chat},
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", g.title)
		if len(g.ids) == 0 {
			fmt.Fprintln(w, "  none")
		}
		for _, id := range g.ids {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
}
