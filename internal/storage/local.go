package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// localStore implements ImageStore on the local file system.
type localStore struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStore creates an ImageStore rooted at dir.
func NewLocalStore(dir string, logger zerolog.Logger) ImageStore {
	return &localStore{
		root:   dir,
		logger: logger.With().Str("component", "local-image-store").Logger(),
	}
}

func (s *localStore) path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes body under key, creating parent directories as needed.
func (s *localStore) Put(ctx context.Context, key string, body []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to create image directory")
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write image")
		return fmt.Errorf("failed to write image %s: %w", key, err)
	}

	s.logger.Info().Str("key", key).Int("bytes", len(body)).Msg("image stored on local disk")
	return nil
}

// Open returns the file stored under key.
func (s *localStore) Open(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open image %s: %w", key, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Object{Body: f, ContentType: contentType}, nil
}
