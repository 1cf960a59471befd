package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studykit/internal/util"

	"github.com/replicate/replicate-go"
)

const DefaultReplicateModel = "ideogram-ai/ideogram-v3-balanced"

// ReplicateProvider renders images through Replicate's predictions API.
type ReplicateProvider struct {
	keyName      string
	token        string
	model        string
	pollInterval time.Duration
	opts         []replicate.ClientOption
}

// NewReplicateProvider builds a provider for an "owner/name" model. Extra
// client options are appended after the token and retry policy.
func NewReplicateProvider(keyName, token, model string, opts ...replicate.ClientOption) *ReplicateProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultReplicateModel
	}
	return &ReplicateProvider{
		keyName:      keyName,
		token:        strings.TrimSpace(token),
		model:        model,
		pollInterval: 2 * time.Second,
		opts:         opts,
	}
}

func (r *ReplicateProvider) Configured() bool {
	return r.token != ""
}

func (r *ReplicateProvider) client() (*replicate.Client, error) {
	opts := []replicate.ClientOption{
		replicate.WithToken(r.token),
		replicate.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}),
		// No SDK retries: a rate-limited render moves on to the next provider.
		replicate.WithRetryPolicy(0, &replicate.ConstantBackoff{}),
	}
	return replicate.NewClient(append(opts, r.opts...)...)
}

func (r *ReplicateProvider) Render(ctx context.Context, req ImageRequest) (ImageResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "replicate", Model: r.model, Key: r.keyName}
	if !r.Configured() {
		return ImageResponse{}, info, fmt.Errorf("replicate token missing for alias %q", r.keyName)
	}
	owner, name, ok := strings.Cut(r.model, "/")
	if !ok || owner == "" || name == "" {
		return ImageResponse{}, info, fmt.Errorf("replicate model must be owner/name, got %q", r.model)
	}
	client, err := r.client()
	if err != nil {
		return ImageResponse{}, info, fmt.Errorf("replicate client: %w", err)
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "3:4"
	}
	input := replicate.PredictionInput{
		"prompt":              req.Prompt,
		"aspect_ratio":        aspect,
		"style_type":          "Design",
		"magic_prompt_option": "Off",
	}
	pred, err := client.CreatePredictionWithModel(ctx, owner, name, input, nil, false)
	if err != nil {
		return ImageResponse{}, info, classifyReplicateError(err)
	}
	if !pred.Status.Terminated() {
		if err := client.Wait(ctx, pred, replicate.WithPollingInterval(r.pollInterval)); err != nil {
			return ImageResponse{}, info, classifyReplicateError(err)
		}
	}
	if pred.Status != replicate.Succeeded {
		return ImageResponse{}, info, fmt.Errorf("replicate prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	return ImageResponse{Output: pred.Output}, info, nil
}

func classifyReplicateError(err error) error {
	var apiErr *replicate.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("replicate request failed: %w", err)
	}
	detail := util.DisplaySnippet(apiErr.Error(), 200)
	switch apiErr.Status {
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: replicate 402: %s", util.ErrQuotaExhausted, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: replicate 429: %s", util.ErrRateLimited, detail)
	case http.StatusUnauthorized:
		return fmt.Errorf("replicate 401 unauthorized: %s", detail)
	}
	return fmt.Errorf("replicate error %d: %s", apiErr.Status, detail)
}
