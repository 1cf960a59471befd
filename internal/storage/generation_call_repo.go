package storage

import (
	"context"
	"fmt"

	"studykit/internal/generation"
)

// GenerationCallRepo persists the audit trail of text generation calls.
type GenerationCallRepo struct {
	db *DB
}

func NewGenerationCallRepo(db *DB) *GenerationCallRepo {
	return &GenerationCallRepo{db: db}
}

func (r *GenerationCallRepo) RecordCall(ctx context.Context, rec generation.CallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO generation_calls(operation, note_title, provider_name, model, key_source, status, error_type, input_tokens, output_tokens, duration_ms)
VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, NULLIF($7,''), $8, $9, $10)`,
		rec.Operation, rec.NoteTitle, rec.ProviderName, rec.Model, rec.KeySource, rec.Status, rec.ErrorType,
		rec.InputTokens, rec.OutputTokens, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert generation call: %w", err)
	}
	return nil
}
