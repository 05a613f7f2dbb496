package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/ankiform/internal/store"
)

// Blobs is the durable key/value storage the settings live in.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store loads and saves Settings under a single blob key.
type Store struct {
	blobs  Blobs
	key    string
	logger *slog.Logger
}

// NewStore creates a settings store on top of blobs.
func NewStore(blobs Blobs, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, key: Key, logger: logger}
}

// Load returns the persisted settings. Missing or unreadable blobs fall
// back to the defaults; the problem is logged and never returned.
func (s *Store) Load(ctx context.Context) Settings {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, store.ErrNotFound) {
		return Default()
	}
	if err != nil {
		s.logger.Warn("settings: read failed, using defaults",
			slog.String("key", s.key), slog.String("error", err.Error()))
		return Default()
	}

	settings, err := Decode(data)
	if err != nil {
		s.logger.Warn("settings: stored blob ignored, using defaults",
			slog.String("key", s.key), slog.String("error", err.Error()))
	}
	return settings
}

// Save normalizes and persists settings, returning what was written.
func (s *Store) Save(ctx context.Context, settings Settings) (Settings, error) {
	normalized := settings.Normalized()
	data, err := Encode(normalized)
	if err != nil {
		return settings, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return settings, fmt.Errorf("failed to save settings: %w", err)
	}
	s.logger.Debug("settings: saved", slog.String("key", s.key))
	return normalized, nil
}

// Reset removes the persisted blob so the next Load yields the defaults.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, s.key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	return nil
}
