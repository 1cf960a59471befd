package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STUDYKIT_MAX_OUTPUT_TOKENS", "")
	t.Setenv("STUDYKIT_OBJECT_STORAGE_MODE", "")
	cfg := Load()
	require.Equal(t, 16000, cfg.MaxOutputTokens)
	require.Equal(t, 50000, cfg.MaxExtractedChars)
	require.Equal(t, "local", cfg.ObjectStorageMode)
	require.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
}

func TestImageProvidersDefaultToReplicateFirst(t *testing.T) {
	t.Setenv("STUDYKIT_IMAGE_PROVIDERS", "")
	cfg := Load()
	require.Equal(t, "replicate|gemini", cfg.ImageProviders)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STUDYKIT_MAX_OUTPUT_TOKENS", "8000")
	t.Setenv("STUDYKIT_OBJECT_STORAGE_MODE", "GCS")
	t.Setenv("STUDYKIT_PUBLIC_BASE_URL", "https://cdn.example.com/v/")
	t.Setenv("STUDYKIT_EXTRACT_WORKERS", "not-a-number")
	cfg := Load()
	require.Equal(t, 8000, cfg.MaxOutputTokens)
	require.Equal(t, "gcs", cfg.ObjectStorageMode)
	require.Equal(t, "https://cdn.example.com/v", cfg.PublicBaseURL)
	require.Equal(t, 4, cfg.ExtractWorkers)
}
