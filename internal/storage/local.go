package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"podcastforge/internal/fileutil"
)

// LocalScheme prefixes URLs for local objects when no public base URL is set.
const LocalScheme = "local://"

// Local stores objects below a directory on disk.
type Local struct {
	root    string
	baseURL string
}

// NewLocal builds a local backend rooted at dir.
func NewLocal(dir, publicBaseURL string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: local_dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &Local{root: dir, baseURL: trimBase(publicBaseURL)}, nil
}

// Name implements Store.
func (l *Local) Name() string { return "local" }

// Root returns the backing directory.
func (l *Local) Root() string { return l.root }

// Put implements Store.
func (l *Local) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(l.path(key), body, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", key, err)
	}
	return l.URL(ctx, key)
}

// URL implements Store.
func (l *Local) URL(_ context.Context, key string) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if l.baseURL != "" {
		return l.baseURL + "/" + key, nil
	}
	return LocalScheme + key, nil
}

// Open implements Store.
func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Delete implements Store.
func (l *Local) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(l.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// KeyForURL implements Store.
func (l *Local) KeyForURL(url string) (string, bool) {
	var key string
	switch {
	case strings.HasPrefix(url, LocalScheme):
		key = strings.TrimPrefix(url, LocalScheme)
	case l.baseURL != "" && strings.HasPrefix(url, l.baseURL+"/"):
		key = strings.TrimPrefix(url, l.baseURL+"/")
	default:
		return "", false
	}
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", false
	}
	return cleaned, true
}

func (l *Local) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}
