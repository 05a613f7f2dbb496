package image

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockSearcher implements ImageSearcher for testing
type mockSearcher struct {
	name          string
	searchResults []SearchResult
	searchErr     error
	failURLs      map[string]error
	lastOpts      *SearchOptions
}

func (m *mockSearcher) Search(ctx context.Context, opts *SearchOptions) ([]SearchResult, error) {
	m.lastOpts = opts
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockSearcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := m.failURLs[url]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader("image:" + url)), nil
}

func (m *mockSearcher) GetAttribution(result *SearchResult) string {
	return result.Attribution
}

func (m *mockSearcher) Name() string {
	return m.name
}

func TestDefaultSearchOptions(t *testing.T) {
	opts := DefaultSearchOptions("apple")

	if opts.Query != "apple" {
		t.Errorf("Expected query 'apple', got '%s'", opts.Query)
	}
	if opts.Language != "en" {
		t.Errorf("Expected language 'en', got '%s'", opts.Language)
	}
	if !opts.SafeSearch {
		t.Error("Expected SafeSearch to be true")
	}
	if opts.PerPage != 10 || opts.Page != 1 {
		t.Errorf("Expected page 1 with 10 results, got page %d with %d", opts.Page, opts.PerPage)
	}
}

func TestSearchErrors(t *testing.T) {
	err := &SearchError{Provider: "pixabay", Code: "400", Message: "bad key"}
	if err.Error() != "pixabay: bad key" {
		t.Errorf("SearchError.Error() = %q", err.Error())
	}

	rl := &RateLimitError{Provider: "pixabay", RetryAfter: 60}
	if rl.Error() != "pixabay: rate limit exceeded" {
		t.Errorf("RateLimitError.Error() = %q", rl.Error())
	}
}

func TestDownloadBestMatchSkipsFailures(t *testing.T) {
	searcher := &mockSearcher{
		name: "mock",
		searchResults: []SearchResult{
			{ID: "1", URL: "https://example.com/broken.jpg", Source: "mock"},
			{ID: "2", URL: "https://example.com/cat.png?w=640", Source: "mock"},
		},
		failURLs: map[string]error{"https://example.com/broken.jpg": errors.New("404")},
	}
	d := NewDownloader(searcher, nil)

	att, result, err := d.DownloadBestMatch(context.Background(), "котка")
	if err != nil {
		t.Fatalf("DownloadBestMatch() error: %v", err)
	}
	if result.ID != "2" {
		t.Errorf("Expected second result, got %s", result.ID)
	}
	if att.Name() != "котка_mock.png" {
		t.Errorf("Name() = %s, want котка_mock.png", att.Name())
	}
	if searcher.lastOpts.PerPage != 5 {
		t.Errorf("Expected 5 candidates, got %d", searcher.lastOpts.PerPage)
	}
}

func TestDownloadBestMatchFailures(t *testing.T) {
	ctx := context.Background()

	empty := NewDownloader(&mockSearcher{name: "mock"}, nil)
	if _, _, err := empty.DownloadBestMatch(ctx, "x"); !errors.Is(err, ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}

	failing := NewDownloader(&mockSearcher{name: "mock", searchErr: errors.New("offline")}, nil)
	if _, _, err := failing.DownloadBestMatch(ctx, "x"); err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("Expected search error, got %v", err)
	}

	tooBig := NewDownloader(&mockSearcher{
		name:          "mock",
		searchResults: []SearchResult{{ID: "1", URL: "https://example.com/huge.jpg"}},
	}, &DownloadOptions{MaxSizeBytes: 4})
	if _, _, err := tooBig.DownloadBestMatch(ctx, "x"); err == nil {
		t.Error("Expected error when every image exceeds the size limit")
	}
}

func TestGenerateFileName(t *testing.T) {
	d := NewDownloader(&mockSearcher{}, &DownloadOptions{FileNamePattern: "{word}-{id}-{index}"})
	tests := []struct {
		word   string
		result SearchResult
		want   string
	}{
		{"ябълка", SearchResult{ID: "7", URL: "https://x/a.png"}, "ябълка-7-0.png"},
		{"two words", SearchResult{ID: "8", URL: "https://x/noext"}, "two_words-8-0.jpg"},
		{"a.b", SearchResult{ID: "9", URL: "https://x/p.webp"}, "a_b-9-0.webp"},
	}
	for _, tt := range tests {
		if got := d.generateFileName(tt.word, &tt.result, 0); got != tt.want {
			t.Errorf("generateFileName(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}
