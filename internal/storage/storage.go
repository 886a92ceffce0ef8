package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"podcastforge/internal/config"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty keys or keys escaping the namespace.
var ErrInvalidKey = errors.New("invalid object key")

// Store is the object storage contract used by the pipeline.
type Store interface {
	// Name identifies the backend in logs and health output.
	Name() string
	// Put stores body under key and returns a retrievable URL.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	// URL returns a retrievable URL for key, signed when the backend requires it.
	URL(ctx context.Context, key string) (string, error)
	// Open streams the object stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// KeyForURL maps a URL previously returned by this backend back to its key.
	KeyForURL(url string) (string, bool)
}

// New builds the backend selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", config.StorageBackendLocal:
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	case config.StorageBackendS3:
		return NewS3(ctx, cfg.Storage, logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// JoinKey builds a namespaced key from segments, skipping empty ones.
func JoinKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment != "" {
			parts = append(parts, segment)
		}
	}
	return strings.Join(parts, "/")
}

// ReadAll reads the object stored under key.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func trimBase(base string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/")
}

// Segment makes value safe to use as one key path segment. Characters
// outside [A-Za-z0-9._-] become underscores; empty input becomes fallback.
func Segment(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "." || value == ".." {
		return fallback
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
