package providers

import (
	"fmt"
	"os"
	"strings"

	"studykit/internal/config"
)

type NamedImageProvider struct {
	Ref      ProviderRef
	Provider ImageProvider
}

// Manager owns the text provider and the ordered image provider chain.
type Manager struct {
	text           LLMProvider
	operatorKey    bool
	imageProviders []NamedImageProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{}
	if strings.EqualFold(cfg.GenerationModel, "mock") {
		m.text = NewMockProvider()
		m.operatorKey = true
	} else {
		ap := NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.GenerationModel)
		m.text = ap
		m.operatorKey = ap.HasOperatorKey()
	}

	for _, ref := range ParseProviderList(cfg.ImageProviders) {
		p, ok, err := buildImageProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		m.imageProviders = append(m.imageProviders, NamedImageProvider{Ref: ref, Provider: p})
	}
	return m, nil
}

// NewManagerWith wires explicit providers. Used by tests and embedders.
func NewManagerWith(text LLMProvider, operatorKey bool, images ...NamedImageProvider) *Manager {
	return &Manager{text: text, operatorKey: operatorKey, imageProviders: images}
}

func (m *Manager) Text() LLMProvider {
	return m.text
}

// HasOperatorKey reports whether requests may fall back to the operator's key.
func (m *Manager) HasOperatorKey() bool {
	return m.operatorKey
}

func (m *Manager) ImageProviders() []NamedImageProvider {
	return m.imageProviders
}

func (m *Manager) ImageCount() int {
	return len(m.imageProviders)
}

// buildImageProvider returns ok=false for known providers without credentials
// so they drop out of the chain instead of failing every render.
func buildImageProvider(ref ProviderRef, cfg config.Config) (ImageProvider, bool, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(), true, nil
	case "replicate":
		p := NewReplicateProvider(ref.KeyAlias, resolveKey("REPLICATE_API_TOKEN", ref.KeyAlias, cfg.ReplicateAPIToken), cfg.ReplicateModel)
		return p, p.Configured(), nil
	case "gemini":
		p := NewGeminiImageProvider(ref.KeyAlias, resolveKey("GEMINI_API_KEY", ref.KeyAlias, cfg.GeminiAPIKey), cfg.GeminiImageModel)
		return p, p.Configured(), nil
	default:
		return nil, false, fmt.Errorf("unsupported image provider: %s", ref.Name)
	}
}

func resolveKey(envName, alias, fallback string) string {
	if alias != "" {
		if v := os.Getenv(envName + "_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return fallback
}
