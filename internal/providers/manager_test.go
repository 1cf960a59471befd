package providers

import (
	"testing"

	"studykit/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewManagerSkipsUnconfiguredImageProviders(t *testing.T) {
	cfg := config.Config{
		GenerationModel:   "claude-test",
		AnthropicAPIKey:   "sk-ant-operator-key-000",
		ImageProviders:    "gemini|replicate|mock",
		ReplicateAPIToken: "r8_token",
	}
	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.True(t, m.HasOperatorKey())
	require.Equal(t, 2, m.ImageCount())
	require.Equal(t, "replicate", m.ImageProviders()[0].Ref.Name)
	require.Equal(t, "mock", m.ImageProviders()[1].Ref.Name)
}

func TestDefaultImageChainPrefersReplicate(t *testing.T) {
	t.Setenv("STUDYKIT_IMAGE_PROVIDERS", "")
	cfg := config.Load()
	cfg.ReplicateAPIToken = "r8_token"
	cfg.GeminiAPIKey = "g-key"
	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.Equal(t, 2, m.ImageCount())
	require.Equal(t, "replicate", m.ImageProviders()[0].Ref.Name)
	require.Equal(t, "gemini", m.ImageProviders()[1].Ref.Name)
}

func TestNewManagerAliasKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY_TEAM", "g-key")
	m, err := NewManager(config.Config{ImageProviders: "gemini:team"})
	require.NoError(t, err)
	require.Equal(t, 1, m.ImageCount())
	require.False(t, m.HasOperatorKey())
}

func TestNewManagerUnknownProvider(t *testing.T) {
	_, err := NewManager(config.Config{ImageProviders: "dalle"})
	require.Error(t, err)
}

func TestNewManagerMockModel(t *testing.T) {
	m, err := NewManager(config.Config{GenerationModel: "mock"})
	require.NoError(t, err)
	_, ok := m.Text().(*MockProvider)
	require.True(t, ok)
	require.True(t, m.HasOperatorKey())
}
