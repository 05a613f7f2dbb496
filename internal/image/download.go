package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"codeberg.org/snonux/ankiform/internal/media"
)

// ErrNoImages is returned when a search has no usable result.
var ErrNoImages = errors.New("no images found")

// DownloadOptions configures image download behavior
type DownloadOptions struct {
	FileNamePattern string // Pattern for file naming (e.g., "{word}_{source}")
	MaxSizeBytes    int64  // Maximum file size to download (0 = no limit)
	MaxCandidates   int    // How many results to try before giving up
	Logger          *slog.Logger
}

// DefaultDownloadOptions returns sensible defaults for image downloads
func DefaultDownloadOptions() *DownloadOptions {
	return &DownloadOptions{
		FileNamePattern: "{word}_{source}",
		MaxSizeBytes:    10 * 1024 * 1024, // 10MB
		MaxCandidates:   5,
	}
}

// Downloader turns search results into attachments
type Downloader struct {
	searcher ImageSearcher
	options  *DownloadOptions
	logger   *slog.Logger
}

// NewDownloader creates a new image downloader
func NewDownloader(searcher ImageSearcher, options *DownloadOptions) *Downloader {
	if options == nil {
		options = DefaultDownloadOptions()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		searcher: searcher,
		options:  options,
		logger:   logger,
	}
}

// Download fetches a single result into memory
func (d *Downloader) Download(ctx context.Context, word string, result *SearchResult, index int) (media.Attachment, error) {
	reader, err := d.searcher.Download(ctx, result.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer reader.Close()

	var data []byte
	if limit := d.options.MaxSizeBytes; limit > 0 {
		data, err = io.ReadAll(io.LimitReader(reader, limit+1))
		if err == nil && int64(len(data)) > limit {
			return nil, fmt.Errorf("image exceeds maximum size of %d bytes", limit)
		}
	} else {
		data, err = io.ReadAll(reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image from %s", d.searcher.Name())
	}

	return media.FromBytes(d.generateFileName(word, result, index), data), nil
}

// DownloadBestMatch searches for query and returns the first result that
// downloads cleanly
func (d *Downloader) DownloadBestMatch(ctx context.Context, query string) (media.Attachment, *SearchResult, error) {
	return d.DownloadBestMatchWithOptions(ctx, DefaultSearchOptions(query))
}

// DownloadBestMatchWithOptions is DownloadBestMatch with explicit search
// options
func (d *Downloader) DownloadBestMatchWithOptions(ctx context.Context, opts *SearchOptions) (media.Attachment, *SearchResult, error) {
	searchOpts := *opts
	if d.options.MaxCandidates > 0 {
		searchOpts.PerPage = d.options.MaxCandidates
	}

	results, err := d.searcher.Search(ctx, &searchOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		return nil, nil, fmt.Errorf("%w for query: %s", ErrNoImages, opts.Query)
	}

	for i := range results {
		result := results[i]
		att, err := d.Download(ctx, opts.Query, &result, i)
		if err == nil {
			return att, &result, nil
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		d.logger.Warn("image: download failed, trying next result",
			slog.Int("index", i+1),
			slog.String("url", result.URL),
			slog.String("error", err.Error()))
	}

	return nil, nil, fmt.Errorf("failed to download any images for query: %s", opts.Query)
}

// generateFileName creates a filename based on the pattern
func (d *Downloader) generateFileName(word string, result *SearchResult, index int) string {
	filename := d.options.FileNamePattern
	if filename == "" {
		filename = "{word}_{source}"
	}

	filename = strings.ReplaceAll(filename, "{word}", sanitizeFileName(word))
	filename = strings.ReplaceAll(filename, "{source}", result.Source)
	filename = strings.ReplaceAll(filename, "{id}", result.ID)
	filename = strings.ReplaceAll(filename, "{index}", fmt.Sprintf("%d", index))

	// Determine extension from URL path
	ext := ""
	if u := result.URL; u != "" {
		if i := strings.IndexAny(u, "?#"); i >= 0 {
			u = u[:i]
		}
		ext = path.Ext(u)
	}
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}

	filename = media.SanitizeFilename(filename)
	if path.Ext(filename) == "" {
		filename += ext
	}
	return filename
}

// sanitizeFileName shortens a word for use in a file name
func sanitizeFileName(name string) string {
	sanitized := strings.ReplaceAll(media.SanitizeFilename(strings.TrimSpace(name)), ".", "_")

	runes := []rune(sanitized)
	if len(runes) > 50 {
		sanitized = string(runes[:50])
	}

	return sanitized
}
