package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"studykit/internal/config"
	"studykit/internal/extract"
	"studykit/internal/logger"
	"studykit/internal/pipeline"
	"studykit/internal/util"
)

type Activities struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	log      *logger.Logger
}

func New(cfg config.Config, p *pipeline.Pipeline, log *logger.Logger) *Activities {
	if log == nil {
		log = logger.Nop()
	}
	return &Activities{cfg: cfg, pipeline: p, log: log.With("component", "activities")}
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	var m JobManifest
	if err := util.ReadJSON(in.ManifestPath, &m); err != nil {
		return ExtractTextOutput{}, err
	}
	files := make([]extract.File, 0, len(m.Files))
	for _, sf := range m.Files {
		data, err := os.ReadFile(sf.Path)
		if err != nil {
			return ExtractTextOutput{}, fmt.Errorf("read staged file %s: %w", sf.Name, err)
		}
		files = append(files, extract.File{Name: sf.Name, MediaType: sf.MediaType, Data: data})
	}
	text, err := a.pipeline.ExtractText(ctx, files)
	if err != nil {
		return ExtractTextOutput{}, userFacing(err)
	}
	textPath := filepath.Join(a.cfg.DataOutRoot, in.JobID, "extracted.txt")
	if err := util.WriteFileAtomic(textPath, []byte(text)); err != nil {
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{TextPath: textPath, Chars: utf8.RuneCountInString(text)}, nil
}

// GenerateStudyKitActivity always uses the operator key; caller keys are
// never written to staging or workflow history.
func (a *Activities) GenerateStudyKitActivity(ctx context.Context, in GenerateStudyKitInput) (GenerateStudyKitOutput, error) {
	b, err := os.ReadFile(in.TextPath)
	if err != nil {
		return GenerateStudyKitOutput{}, fmt.Errorf("read extracted text: %w", err)
	}
	kit, err := a.pipeline.GenerateKit(ctx, string(b), in.Style, pipeline.Credential{Source: pipeline.SourceOperator}, in.Title)
	if err != nil {
		return GenerateStudyKitOutput{}, userFacing(err)
	}
	return GenerateStudyKitOutput{Kit: kit}, nil
}

func (a *Activities) RenderVisualActivity(ctx context.Context, in RenderVisualInput) (RenderVisualOutput, error) {
	return RenderVisualOutput{VisualURL: a.pipeline.RenderVisual(ctx, in.Prompt, in.Title)}, nil
}

func (a *Activities) PersistNoteActivity(ctx context.Context, in PersistNoteInput) (PersistNoteOutput, error) {
	id, err := a.pipeline.Persist(ctx, in.Meta, in.Language, in.Kit, in.VisualURL)
	if err != nil {
		return PersistNoteOutput{}, err
	}
	return PersistNoteOutput{NoteID: id}, nil
}

func (a *Activities) WriteJobResultActivity(ctx context.Context, in WriteJobResultInput) error {
	_ = ctx
	return util.WriteJSONAtomic(ResultPath(a.cfg.DataOutRoot, in.JobID), in.Result)
}
