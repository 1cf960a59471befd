// Package blobstore persists rendered visuals and resolves them back from the
// public URLs stored on notes.
package blobstore

import (
	"context"
	"fmt"
	"strings"

	"studykit/internal/config"
	"studykit/internal/logger"
)

const (
	ModeLocal = "local"
	ModeGCS   = "gcs"
)

type Store interface {
	// Put stores data under key, overwriting, and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL reverses Put's public URL. ok is false for foreign URLs.
	KeyFromURL(publicURL string) (key string, ok bool)
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (Store, error) {
	switch cfg.ObjectStorageMode {
	case ModeGCS:
		return NewGCS(ctx, cfg.VisualBucket, log)
	case ModeLocal, "":
		return NewLocal(cfg.VisualDir, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown object storage mode %q", cfg.ObjectStorageMode)
	}
}

// ContentTypeForKey maps an image key's extension to its media type.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	default:
		return ""
	}
}

// ExtensionForContentType is the inverse used when naming uploads; unknown
// types are stored as webp.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	default:
		return "webp"
	}
}
