package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation string `json:"operation"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	// APIKey overrides the provider's configured key for this call only.
	APIKey string `json:"-"`
}

type GenerateResponse struct {
	Text         string `json:"text"`
	StopReason   string `json:"stop_reason"`
	Truncated    bool   `json:"truncated"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

type ImageRequest struct {
	Operation   string `json:"operation"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

// ImageResponse carries the provider payload as decoded JSON. Its shape is not
// stable across provider model versions, so callers extract the location.
type ImageResponse struct {
	Output any `json:"output"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type ImageProvider interface {
	Render(ctx context.Context, req ImageRequest) (ImageResponse, ProviderInfo, error)
}
