package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studykit/internal/util"
)

const (
	DefaultMistralEndpoint = "https://api.mistral.ai/v1/ocr"
	mistralModel           = "mistral-ocr-latest"
	pageSeparator          = "\n\n---\n\n"
)

// MistralClient calls the hosted Mistral OCR endpoint. It is billed per page.
type MistralClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewMistralClient(apiKey, endpoint string) *MistralClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultMistralEndpoint
	}
	return &MistralClient{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithTimeout bounds each hosted OCR request.
func (m *MistralClient) WithTimeout(d time.Duration) *MistralClient {
	if d > 0 {
		m.client.Timeout = d
	}
	return m
}

func (m *MistralClient) Configured() bool {
	return m != nil && m.apiKey != ""
}

func (m *MistralClient) Recognize(ctx context.Context, data []byte, mediaType string, opts Options) (Result, error) {
	if !m.Configured() {
		return Result{}, fmt.Errorf("%w: MISTRAL_API_KEY is not configured", util.ErrOCRUnavailable)
	}
	if mediaType == "" {
		mediaType = "application/pdf"
	}
	docType := "document_url"
	if strings.HasPrefix(mediaType, "image/") {
		docType = "image_url"
	}
	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
	payload, _ := json.Marshal(map[string]any{
		"model": mistralModel,
		"document": map[string]string{
			"type":  docType,
			docType: dataURL,
		},
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("mistral ocr request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return Result{}, fmt.Errorf("mistral ocr error %d: %s", resp.StatusCode, util.DisplaySnippet(string(body), 300))
	}
	var parsed struct {
		Pages []struct {
			Index    int    `json:"index"`
			Markdown string `json:"markdown"`
		} `json:"pages"`
		UsageInfo struct {
			PagesProcessed int `json:"pages_processed"`
		} `json:"usage_info"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode mistral ocr response: %w", err)
	}
	pages := make([]string, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		pages = append(pages, p.Markdown)
	}
	return requireMinChars(Result{
		Text:   strings.Join(pages, pageSeparator),
		Pages:  parsed.UsageInfo.PagesProcessed,
		Engine: "mistral",
	}, opts.MinChars)
}
