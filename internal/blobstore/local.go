package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"studykit/internal/util"
)

// LocalStore keeps visuals on disk; the API serves Dir under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*LocalStore, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create visual dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_ = ctx
	_ = contentType
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := util.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write visual: %w", err)
	}
	return s.BaseURL + "/" + filepath.ToSlash(key), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete visual: %w", err)
	}
	return nil
}

func (s *LocalStore) KeyFromURL(publicURL string) (string, bool) {
	return keyUnderPrefix(publicURL, s.BaseURL)
}

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid visual key %q", key)
	}
	return filepath.Join(s.Dir, clean), nil
}
