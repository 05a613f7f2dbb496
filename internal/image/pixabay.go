package image

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	pixabayAPIURL  = "https://pixabay.com/api/"
	pixabayTimeout = 30 * time.Second
)

// PixabayClient implements ImageSearcher for Pixabay API
type PixabayClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	rateLimit  *rateLimiter
}

// PixabayOption customizes a PixabayClient.
type PixabayOption func(*PixabayClient)

// WithPixabayURL points the client at a different API endpoint.
func WithPixabayURL(apiURL string) PixabayOption {
	return func(p *PixabayClient) { p.apiURL = apiURL }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) PixabayOption {
	return func(p *PixabayClient) { p.httpClient = c }
}

// pixabayResponse represents the API response structure
type pixabayResponse struct {
	Total     int            `json:"total"`
	TotalHits int            `json:"totalHits"`
	Hits      []pixabayImage `json:"hits"`
}

// pixabayImage represents a single image in the response
type pixabayImage struct {
	ID              int    `json:"id"`
	PageURL         string `json:"pageURL"`
	Tags            string `json:"tags"`
	PreviewURL      string `json:"previewURL"`
	WebformatURL    string `json:"webformatURL"`
	WebformatWidth  int    `json:"webformatWidth"`
	WebformatHeight int    `json:"webformatHeight"`
	User            string `json:"user"`
}

// rateLimiter implements simple rate limiting
type rateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	requests          []time.Time
}

func newRateLimiter(rpm int) *rateLimiter {
	return &rateLimiter{
		requestsPerMinute: rpm,
		requests:          make([]time.Time, 0, rpm),
	}
}

func (rl *rateLimiter) wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Remove requests older than 1 minute
	cutoff := now.Add(-1 * time.Minute)
	i := 0
	for i < len(rl.requests) && rl.requests[i].Before(cutoff) {
		i++
	}
	rl.requests = rl.requests[i:]

	// If we're at the limit, wait
	if len(rl.requests) >= rl.requestsPerMinute {
		waitDuration := rl.requests[0].Add(1 * time.Minute).Sub(now)
		if waitDuration > 0 {
			timer := time.NewTimer(waitDuration)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		rl.requests = rl.requests[1:]
	}

	rl.requests = append(rl.requests, time.Now())
	return nil
}

// NewPixabayClient creates a new Pixabay API client
func NewPixabayClient(apiKey string, opts ...PixabayOption) *PixabayClient {
	p := &PixabayClient{
		apiKey: apiKey,
		apiURL: pixabayAPIURL,
		httpClient: &http.Client{
			Timeout: pixabayTimeout,
		},
		rateLimit: newRateLimiter(100), // 100 requests per minute
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search performs an image search on Pixabay
func (p *PixabayClient) Search(ctx context.Context, opts *SearchOptions) ([]SearchResult, error) {
	if p.apiKey == "" {
		return nil, &SearchError{Provider: "pixabay", Code: "NO_API_KEY", Message: "Pixabay API key not configured"}
	}
	if err := p.rateLimit.wait(ctx); err != nil {
		return nil, err
	}

	// Build query parameters
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("q", opts.Query)
	params.Set("lang", opts.Language)
	params.Set("image_type", opts.ImageType)
	params.Set("safesearch", strconv.FormatBool(opts.SafeSearch))
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	params.Set("page", strconv.Itoa(opts.Page))

	if opts.Orientation != "all" && opts.Orientation != "" {
		params.Set("orientation", opts.Orientation)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:     "pixabay",
			RetryAfter:   60,
			LimitPerHour: 5000,
		}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SearchError{
			Provider: "pixabay",
			Code:     strconv.Itoa(resp.StatusCode),
			Message:  string(body),
		}
	}

	var pixResp pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&pixResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(pixResp.Hits))
	for _, hit := range pixResp.Hits {
		results = append(results, SearchResult{
			ID:           strconv.Itoa(hit.ID),
			URL:          hit.WebformatURL,
			ThumbnailURL: hit.PreviewURL,
			Width:        hit.WebformatWidth,
			Height:       hit.WebformatHeight,
			Description:  hit.Tags,
			Attribution:  fmt.Sprintf("Image by %s from Pixabay", hit.User),
			Source:       "pixabay",
		})
	}

	return results, nil
}

// Download downloads an image from the given URL
func (p *PixabayClient) Download(ctx context.Context, imageURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// GetAttribution returns the attribution text for an image. Pixabay does
// not require it, so it is only kept for the history.
func (p *PixabayClient) GetAttribution(result *SearchResult) string {
	return result.Attribution
}

// Name returns the name of the search provider
func (p *PixabayClient) Name() string {
	return "pixabay"
}
