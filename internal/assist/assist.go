package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/snonux/ankiform/internal/settings"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrNoWord is returned when a request has no word to work from.
var ErrNoWord = errors.New("a word is required")

// Completer turns a prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Request describes what to generate for.
type Request struct {
	Word     string
	Sentence string
	// Language of Word, e.g. "Bulgarian". Empty lets the model guess.
	Language string
}

// Generator produces text for the text sections of the form.
type Generator struct {
	completer Completer
	cache     *Cache
	logger    *slog.Logger
}

// NewGenerator creates a generator around completer. A nil logger uses
// slog.Default().
func NewGenerator(completer Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{completer: completer, cache: NewCache(), logger: logger}
}

// Provider returns the name of the underlying completer.
func (g *Generator) Provider() string {
	return g.completer.Name()
}

// Supports reports whether Generate can fill section.
func Supports(section settings.Section) bool {
	switch section {
	case settings.Definition, settings.Sentence, settings.SentenceTranslation,
		settings.ExampleSentences, settings.Notes:
		return true
	}
	return false
}

// Generate returns text for section. Replies are cached per section and
// request for the lifetime of the generator.
func (g *Generator) Generate(ctx context.Context, section settings.Section, req Request) (string, error) {
	req.Word = strings.TrimSpace(req.Word)
	req.Sentence = strings.TrimSpace(req.Sentence)
	if req.Word == "" {
		return "", ErrNoWord
	}
	prompt, err := Prompt(section, req)
	if err != nil {
		return "", err
	}

	key := cacheKey(section, req)
	if text, ok := g.cache.Get(key); ok {
		return text, nil
	}

	g.logger.Debug("assist: generating",
		slog.String("provider", g.completer.Name()),
		slog.String("section", string(section)),
		slog.String("word", req.Word))
	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.completer.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: no text returned", g.completer.Name())
	}
	g.cache.Add(key, text)
	return text, nil
}

// Prompt builds the instruction sent for section.
func Prompt(section settings.Section, req Request) (string, error) {
	word := fmt.Sprintf("'%s'", req.Word)
	if req.Language != "" {
		word = fmt.Sprintf("the %s word '%s'", req.Language, req.Word)
	}

	switch section {
	case settings.Definition:
		return fmt.Sprintf("Give a short dictionary definition in English of %s. "+
			"Respond with only the definition, nothing else.", word), nil
	case settings.Sentence:
		return fmt.Sprintf("Write one short, natural example sentence that uses %s. "+
			"Write it in the word's own language. Respond with only the sentence.", word), nil
	case settings.SentenceTranslation:
		if req.Sentence == "" {
			return "", fmt.Errorf("a sentence is required to generate %s", section.Label())
		}
		return fmt.Sprintf("Translate this sentence containing %s to English: '%s'. "+
			"Respond with only the English translation, nothing else.", word, req.Sentence), nil
	case settings.ExampleSentences:
		return fmt.Sprintf("Write three short example sentences that use %s, "+
			"each followed by its English translation in parentheses. "+
			"Put each sentence on its own line with no numbering.", word), nil
	case settings.Notes:
		return fmt.Sprintf("Write brief study notes for %s: part of speech, "+
			"common collocations and any irregular forms. Keep it under 60 words.", word), nil
	}
	return "", fmt.Errorf("cannot generate text for %s", section.Label())
}

func cacheKey(section settings.Section, req Request) string {
	return strings.Join([]string{string(section), req.Language, req.Word, req.Sentence}, "\x00")
}
