package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studykit/internal/logger"
	"studykit/internal/metrics"
	"studykit/internal/models"
	"studykit/internal/providers"
)

const Operation = "study_kit"

// CallRecord is one audited provider call.
type CallRecord struct {
	Operation    string
	NoteTitle    string
	ProviderName string
	Model        string
	KeySource    string
	Status       string
	ErrorType    string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

type Auditor interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

type Client struct {
	llm       providers.LLMProvider
	maxTokens int
	audit     Auditor
	log       *logger.Logger
}

// NewClient wires a text provider. audit may be nil.
func NewClient(llm providers.LLMProvider, maxTokens int, audit Auditor, log *logger.Logger) *Client {
	if maxTokens <= 0 {
		maxTokens = 16000
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{llm: llm, maxTokens: maxTokens, audit: audit, log: log.With("component", "generation")}
}

// Generate makes exactly one provider call and parses it. apiKey, when set,
// is the caller's own credential and replaces the operator key.
func (c *Client) Generate(ctx context.Context, prompt, apiKey, title string) (models.StudyKit, error) {
	start := time.Now()
	resp, info, err := c.llm.Generate(ctx, providers.GenerateRequest{
		Operation: Operation,
		Prompt:    prompt,
		MaxTokens: c.maxTokens,
		APIKey:    apiKey,
	})
	rec := CallRecord{
		Operation:    Operation,
		NoteTitle:    title,
		ProviderName: info.Name,
		Model:        info.Model,
		KeySource:    info.Key,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	defer func() {
		rec.Duration = time.Since(start)
		metrics.StageDuration.WithLabelValues("generate").Observe(rec.Duration.Seconds())
		metrics.GenerationTotal.WithLabelValues(rec.Status).Inc()
		if c.audit == nil {
			return
		}
		// Audit failures never fail the generation.
		if aerr := c.audit.RecordCall(context.WithoutCancel(ctx), rec); aerr != nil {
			c.log.Warn("audit insert failed", "error", aerr)
		}
	}()

	if err != nil {
		rec.Status = "failed"
		rec.ErrorType = string(providers.ClassifyError(err))
		c.log.Error("generation call failed", "provider", info.Name, "model", info.Model, "key", info.Key, "error_type", rec.ErrorType, "error", err)
		return models.StudyKit{}, fmt.Errorf("generate study kit: %w", err)
	}
	if resp.Truncated {
		c.log.Warn("generation hit output token limit", "output_tokens", resp.OutputTokens)
	}

	kit, err := ParseSections(resp.Text)
	if err != nil {
		var se *SectionsError
		if errors.As(err, &se) {
			se.Truncated = resp.Truncated
			rec.ErrorType = "malformed_sections"
			tail := resp.Text
			if len(tail) > 200 {
				tail = tail[len(tail)-200:]
			}
			c.log.Error("response missing sections", "missing", se.Missing, "stop_reason", resp.StopReason, "response_len", len(resp.Text), "response_tail", tail)
		} else {
			rec.ErrorType = "invalid_quiz_json"
			c.log.Error("quiz section invalid", "error", err)
		}
		rec.Status = "rejected"
		return models.StudyKit{}, err
	}
	rec.Status = "succeeded"
	c.log.Info("study kit generated", "model", info.Model, "key", info.Key, "questions", len(kit.Quiz.Questions), "output_tokens", resp.OutputTokens)
	return kit, nil
}
