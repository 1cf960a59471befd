package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"studykit/internal/logger"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

type GCSStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string, log *logger.Logger, opts ...option.ClientOption) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var STUDYKIT_VISUAL_BUCKET")
	}
	if log == nil {
		log = logger.Nop()
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	log.Info("Object storage initialized", "mode", ModeGCS, "bucket", bucket)
	return &GCSStore{log: log.With("component", "blobstore"), client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

func (s *GCSStore) KeyFromURL(publicURL string) (string, bool) {
	return keyUnderPrefix(publicURL, gcsPublicHost+"/"+s.bucket)
}

func (s *GCSStore) publicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", gcsPublicHost, s.bucket, strings.TrimLeft(key, "/"))
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func keyUnderPrefix(publicURL, base string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(publicURL), strings.TrimRight(base, "/")+"/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
