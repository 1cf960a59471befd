package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studykit/internal/util"

	"google.golang.org/genai"
)

const DefaultGeminiImageModel = "gemini-3-pro-image-preview"

// GeminiImageProvider renders images with a Gemini image model and returns them
// inline as data URLs.
type GeminiImageProvider struct {
	keyName string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiImageProvider(keyName, apiKey, model string) *GeminiImageProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiImageModel
	}
	return &GeminiImageProvider{
		keyName: keyName,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithBaseURL points the client at another Gemini API host.
func (g *GeminiImageProvider) WithBaseURL(u string) *GeminiImageProvider {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

func (g *GeminiImageProvider) Configured() bool {
	return g.apiKey != ""
}

func (g *GeminiImageProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.client,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.baseURL},
	})
}

func (g *GeminiImageProvider) Render(ctx context.Context, req ImageRequest) (ImageResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.model, Key: g.keyName}
	if !g.Configured() {
		return ImageResponse{}, info, fmt.Errorf("gemini key missing for alias %q", g.keyName)
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return ImageResponse{}, info, fmt.Errorf("gemini client: %w", err)
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
	}
	if req.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}
	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return ImageResponse{}, info, classifyGeminiError(err)
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return ImageResponse{Output: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data)}, info, nil
		}
	}
	return ImageResponse{}, info, fmt.Errorf("gemini returned no image")
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	msg := util.DisplaySnippet(apiErr.Message, 300)
	switch {
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Status == "RESOURCE_EXHAUSTED", strings.Contains(strings.ToLower(apiErr.Message), "quota"):
		return fmt.Errorf("%w: gemini %d: %s", util.ErrQuotaExhausted, apiErr.Code, msg)
	case apiErr.Code == http.StatusUnauthorized, apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("gemini %d unauthorized: %s", apiErr.Code, msg)
	}
	return fmt.Errorf("gemini generate error %d: %s: %w", apiErr.Code, msg, err)
}
