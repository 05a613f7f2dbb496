package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/ankiform/internal/settings"
	"codeberg.org/snonux/ankiform/internal/testutil"
)

type countingCompleter struct {
	reply string
	err   error
	calls []string
}

func (c *countingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls = append(c.calls, prompt)
	return c.reply, c.err
}

func (c *countingCompleter) Name() string { return "counting" }

func TestGenerateCachesPerRequest(t *testing.T) {
	completer := &countingCompleter{reply: "  a round fruit \n"}
	g := NewGenerator(completer, nil)
	ctx := context.Background()

	text, err := g.Generate(ctx, settings.Definition, Request{Word: " ябълка ", Language: "Bulgarian"})
	require.NoError(t, err)
	require.Equal(t, "a round fruit", text)

	_, err = g.Generate(ctx, settings.Definition, Request{Word: "ябълка", Language: "Bulgarian"})
	require.NoError(t, err)
	require.Len(t, completer.calls, 1)
	require.Contains(t, completer.calls[0], "the Bulgarian word 'ябълка'")

	_, err = g.Generate(ctx, settings.Notes, Request{Word: "ябълка"})
	require.NoError(t, err)
	require.Len(t, completer.calls, 2)
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator(&countingCompleter{reply: "x"}, nil)

	_, err := g.Generate(ctx, settings.Definition, Request{Word: "  "})
	require.ErrorIs(t, err, ErrNoWord)

	_, err = g.Generate(ctx, settings.SentenceAudio, Request{Word: "cat"})
	require.Error(t, err)

	_, err = g.Generate(ctx, settings.SentenceTranslation, Request{Word: "cat"})
	require.ErrorContains(t, err, "sentence is required")

	failing := NewGenerator(&countingCompleter{err: errors.New("quota")}, nil)
	_, err = failing.Generate(ctx, settings.Definition, Request{Word: "cat"})
	require.EqualError(t, err, "counting: quota")

	empty := NewGenerator(&countingCompleter{reply: "   "}, nil)
	_, err = empty.Generate(ctx, settings.Definition, Request{Word: "cat"})
	require.ErrorContains(t, err, "no text returned")
}

func TestSupports(t *testing.T) {
	for _, sec := range settings.AllSections() {
		want := sec.IsText() && sec != settings.TargetWord
		if got := Supports(sec); got != want {
			t.Errorf("Supports(%s) = %v, want %v", sec, got, want)
		}
	}
}

func TestPromptIncludesSentence(t *testing.T) {
	prompt, err := Prompt(settings.SentenceTranslation, Request{Word: "котка", Sentence: "Котката спи."})
	require.NoError(t, err)
	require.True(t, strings.Contains(prompt, "Котката спи."))
}

func TestOpenAICompleter(t *testing.T) {
	fake := testutil.NewFakeOpenAI(t)
	fake.SetChatReply("a domesticated feline")

	g, err := New(Config{OpenAIKey: "test-key", OpenAIBaseURL: fake.BaseURL()})
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, g.Provider())

	text, err := g.Generate(context.Background(), settings.Definition, Request{Word: "cat"})
	require.NoError(t, err)
	require.Equal(t, "a domesticated feline", text)
	require.Equal(t, []string{"/v1/chat/completions"}, fake.Calls())
	require.Contains(t, fake.Prompts()[0], "'cat'")

	fake.Fail("/v1/chat/completions", "model overloaded")
	_, err = g.Generate(context.Background(), settings.Notes, Request{Word: "cat"})
	require.ErrorContains(t, err, "model overloaded")
}

func TestOpenAICompleterNoAPIKey(t *testing.T) {
	_, err := NewOpenAICompleter("", "", "").Complete(context.Background(), "hi")
	require.EqualError(t, err, "OpenAI API key not found")
}

func TestGeminiCompleterNoAPIKey(t *testing.T) {
	c := NewGeminiCompleter("", "")
	require.Equal(t, DefaultGeminiModel, c.model)
	_, err := c.Complete(context.Background(), "hi")
	require.EqualError(t, err, "Gemini API key not found")
}

func TestNewProviderSelection(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	g, err := New(Config{Provider: ProviderGemini, GeminiKey: "k"})
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, g.Provider())

	_, err = New(Config{Provider: "claude", OpenAIKey: "k"})
	require.EqualError(t, err, "unknown assist provider: claude")
}

func TestCache(t *testing.T) {
	c := NewCache()
	c.Add("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)
	require.Equal(t, 1, c.Len())
	c.Clear()
	require.Zero(t, c.Len())
}
