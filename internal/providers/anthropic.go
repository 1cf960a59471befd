package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studykit/internal/util"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicProvider generates text with the Messages API. The operator key is
// used unless the request carries the caller's own key.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicProvider{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: strings.TrimSpace(baseURL),
		model:   model,
		timeout: 5 * time.Minute,
	}
}

func (p *AnthropicProvider) HasOperatorKey() bool {
	return p.apiKey != ""
}

func (p *AnthropicProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	key, keyName := p.apiKey, "operator"
	if strings.TrimSpace(req.APIKey) != "" {
		key, keyName = strings.TrimSpace(req.APIKey), "caller"
	}
	info := ProviderInfo{Name: "anthropic", Model: p.model, Key: keyName}
	if key == "" {
		return GenerateResponse{}, info, fmt.Errorf("%w: no anthropic api key available", util.ErrAuth)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 16000
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(p.timeout),
	}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return GenerateResponse{}, info, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	return GenerateResponse{
		Text:         text.String(),
		StopReason:   string(message.StopReason),
		Truncated:    message.StopReason == anthropic.StopReasonMaxTokens,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, info, nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic request failed: %w", err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: anthropic status %d", util.ErrAuth, apiErr.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: anthropic status 429", util.ErrRateLimited)
	case 529, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: anthropic status %d", util.ErrTransient, apiErr.StatusCode)
	default:
		return fmt.Errorf("anthropic generate error %d: %w", apiErr.StatusCode, err)
	}
}

// LooksLikeAnthropicKey rejects obviously malformed caller keys before any call.
func LooksLikeAnthropicKey(key string) bool {
	key = strings.TrimSpace(key)
	return strings.HasPrefix(key, "sk-ant-") && len(key) > 20
}
