package image

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"codeberg.org/snonux/ankiform/internal/testutil"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	client := NewOpenAIClient(&OpenAIConfig{APIKey: "test-key"})
	if client.model != "dall-e-2" {
		t.Errorf("Expected default model dall-e-2, got %s", client.model)
	}
	if client.size != "512x512" {
		t.Errorf("Expected default size 512x512, got %s", client.size)
	}
	if NewOpenAIClient(nil) == nil {
		t.Error("NewOpenAIClient(nil) returned nil")
	}
}

func TestCreateEducationalPrompt(t *testing.T) {
	client := &OpenAIClient{}
	prompt := client.createEducationalPrompt("ябълка", "apple")
	for _, want := range []string{"ябълка", "apple", "educational", "flashcard", "simple", "clear"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing expected word '%s': %s", want, prompt)
		}
	}
	if strings.Contains(client.createEducationalPrompt("cat", ""), "meaning") {
		t.Error("Prompt without hint must not mention a meaning")
	}
}

func TestIllustrate(t *testing.T) {
	fake := testutil.NewFakeOpenAI(t)
	fake.SetImage([]byte("PNGBYTES"))
	cacheDir := t.TempDir()
	client := NewOpenAIClient(&OpenAIConfig{APIKey: "test-key", BaseURL: fake.BaseURL(), CacheDir: cacheDir})

	ctx := context.Background()
	att, err := client.Illustrate(ctx, "котка", "cat")
	if err != nil {
		t.Fatalf("Illustrate() error: %v", err)
	}
	if att.Name() != "котка_openai.png" {
		t.Errorf("Name() = %s", att.Name())
	}
	rc, err := att.Open()
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "PNGBYTES" {
		t.Errorf("image data = %q", data)
	}

	if _, err := client.Illustrate(ctx, "котка", "cat"); err != nil {
		t.Fatalf("cached Illustrate() error: %v", err)
	}
	if calls := len(fake.Calls()); calls != 1 {
		t.Errorf("Expected 1 API call with cache, got %d", calls)
	}

	path := client.getCacheFilePath(fake.Prompts()[0])
	if !strings.HasPrefix(path, cacheDir) || !strings.HasSuffix(path, ".png") {
		t.Errorf("unexpected cache path %s", path)
	}
}

func TestIllustrateErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewOpenAIClient(&OpenAIConfig{}).Illustrate(ctx, "cat", "")
	var searchErr *SearchError
	if !errors.As(err, &searchErr) || searchErr.Code != "NO_API_KEY" {
		t.Errorf("Expected NO_API_KEY error, got %v", err)
	}

	fake := testutil.NewFakeOpenAI(t)
	client := NewOpenAIClient(&OpenAIConfig{APIKey: "k", BaseURL: fake.BaseURL()})
	if _, err := client.Illustrate(ctx, " ", ""); err == nil {
		t.Error("Expected error for blank word")
	}

	fake.Fail("/v1/images/generations", "content policy violation")
	_, err = client.Illustrate(ctx, "cat", "")
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Errorf("Expected API error, got %v", err)
	}
}
