package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MockProvider returns deterministic, well-formed output for local runs
// without provider credentials.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	topic := "the uploaded material"
	if i := strings.Index(req.Prompt, "--- Content from "); i >= 0 {
		rest := req.Prompt[i+len("--- Content from "):]
		if j := strings.Index(rest, " ---"); j > 0 {
			topic = rest[:j]
		}
	}
	text := fmt.Sprintf(`---VISUAL_PROMPT_START---
Educational study sheet poster about %[1]s. Dark blue gradient background. Key concepts in white rounded boxes. Minimalist style, high contrast.
---VISUAL_PROMPT_END---

---QCM_START---
{"questions":[{"id":1,"question":"What is the main subject of %[1]s?","options":["The subject","Something else","Nothing","All of the above"],"correct_answer":0,"explanation":"Mock output always points at the subject.","difficulty":"easy","topic":"Overview"}],"metadata":{"total_questions":1,"estimated_time_minutes":1,"passing_score_percentage":60}}
---QCM_END---

---NOTES_START---
# Notes on %[1]s

Deterministic mock notes. Configure a real provider for meaningful content.
---NOTES_END---`, topic)
	return GenerateResponse{Text: text, StopReason: "end_turn"}, ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}, nil
}

func (m *MockProvider) Render(ctx context.Context, req ImageRequest) (ImageResponse, ProviderInfo, error) {
	_ = ctx
	sum := sha256.Sum256([]byte(req.Prompt))
	url := "https://placehold.co/768x1024/png?text=" + hex.EncodeToString(sum[:6])
	return ImageResponse{Output: []any{url}}, ProviderInfo{Name: "mock", Model: "mock-image-v1", Key: "mock"}, nil
}
