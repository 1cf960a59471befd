// Package pipeline runs one generation request end to end: extract, prompt,
// generate, render the visual, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studykit/internal/extract"
	"studykit/internal/logger"
	"studykit/internal/metrics"
	"studykit/internal/models"
	"studykit/internal/prompt"
	"studykit/internal/storage"
	"studykit/internal/util"
)

// MinExtractedChars is the least trimmed text worth sending to the model.
const MinExtractedChars = 100

type TextExtractor interface {
	ExtractAll(ctx context.Context, files []extract.File) (string, error)
}

type KitGenerator interface {
	Generate(ctx context.Context, prompt, apiKey, title string) (models.StudyKit, error)
}

type VisualRenderer interface {
	Render(ctx context.Context, prompt, title string) (string, error)
}

type NoteStore interface {
	CourseExists(ctx context.Context, courseID string) (bool, error)
	FindOrCreateCourse(ctx context.Context, institutionID, code, name string) (string, error)
	CreateModule(ctx context.Context, courseID, name string) (string, error)
	InsertNote(ctx context.Context, in storage.NoteInput) (string, error)
}

type Deps struct {
	Extractor TextExtractor
	Generator KitGenerator
	// Visual may be nil; notes are then stored without an image.
	Visual VisualRenderer
	Store  NoteStore
	// MaxChars bounds the document text embedded in the prompt.
	MaxChars int
	// OperatorKey reports whether operator credentials are configured.
	OperatorKey bool
}

type Pipeline struct {
	deps Deps
	log  *logger.Logger
}

func New(deps Deps, log *logger.Logger) *Pipeline {
	if deps.MaxChars <= 0 {
		deps.MaxChars = prompt.MaxExtractedChars
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{deps: deps, log: log.With("component", "pipeline")}
}

// Run executes every stage. Errors before the visual stage abort the request
// before anything is persisted; visual errors only drop the image.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if req.Credential.Source == SourceOperator && !p.deps.OperatorKey {
		return Result{}, fmt.Errorf("%w: server API key not configured", util.ErrAuth)
	}
	log := p.log.With("title", req.Meta.Title, "files", len(req.Files), "key", req.Credential.Source)

	text, err := p.ExtractText(ctx, req.Files)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return Result{}, err
	}
	kit, err := p.GenerateKit(ctx, text, req.Style, req.Credential, req.Meta.Title)
	if err != nil {
		return Result{}, err
	}
	visual := p.RenderVisual(ctx, kit.VisualPrompt, req.Meta.Title)
	noteID, err := p.Persist(ctx, req.Meta, string(req.Style.Language), kit, visual)
	if err != nil {
		log.Error("persist failed", "error", err)
		return Result{}, err
	}
	log.Info("study kit stored", "note_id", noteID, "has_visual", visual != nil)
	return Result{NoteID: noteID, NotesMarkdown: kit.NotesMarkdown, Quiz: kit.Quiz, VisualURL: visual}, nil
}

// ExtractText extracts and concatenates files and rejects near-empty results.
func (p *Pipeline) ExtractText(ctx context.Context, files []extract.File) (string, error) {
	text, err := p.deps.Extractor.ExtractAll(ctx, files)
	if err != nil {
		return "", err
	}
	if n := len([]rune(strings.TrimSpace(text))); n < MinExtractedChars {
		return "", fmt.Errorf("%w: only %d characters found", util.ErrInsufficientText, n)
	}
	return text, nil
}

func (p *Pipeline) GenerateKit(ctx context.Context, text string, style prompt.Style, cred Credential, title string) (models.StudyKit, error) {
	instruction, truncated := prompt.ForDocument(text, style, p.deps.MaxChars)
	if truncated {
		p.log.Warn("extracted text truncated", "chars", len([]rune(text)), "limit", p.deps.MaxChars)
	}
	key := ""
	if cred.Source == SourceCaller {
		key = cred.Key
	}
	return p.deps.Generator.Generate(ctx, instruction, key, title)
}

// RenderVisual returns nil when no image could be produced. It never fails.
func (p *Pipeline) RenderVisual(ctx context.Context, visualPrompt, title string) (out *string) {
	if p.deps.Visual == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("visual render panicked", "panic", r)
			out = nil
		}
	}()
	u, err := p.deps.Visual.Render(ctx, visualPrompt, title)
	if err != nil || u == "" {
		if err == nil {
			err = util.ErrNoImageProduced
		}
		p.log.Warn("continuing without visual", "no_image", errors.Is(err, util.ErrNoImageProduced), "error", err)
		return nil
	}
	return &u
}

// Persist writes the course, optional module and note. Failures are returned
// as *PersistError naming the write that failed.
func (p *Pipeline) Persist(ctx context.Context, meta Meta, language string, kit models.StudyKit, visual *string) (string, error) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds()) }()

	courseID := meta.CourseID
	if courseID != "" {
		ok, err := p.deps.Store.CourseExists(ctx, courseID)
		if err != nil {
			return "", &PersistError{Stage: StageCourse, Err: err}
		}
		if !ok {
			return "", &PersistError{Stage: StageCourse, Err: fmt.Errorf("course %s: %w", courseID, util.ErrNotFound)}
		}
	} else {
		id, err := p.deps.Store.FindOrCreateCourse(ctx, meta.InstitutionID, strings.TrimSpace(meta.CourseCode), strings.TrimSpace(meta.CourseName))
		if err != nil {
			return "", &PersistError{Stage: StageCourse, Err: err}
		}
		courseID = id
	}
	moduleID := meta.ModuleID
	if moduleID == "" && strings.TrimSpace(meta.ModuleName) != "" {
		id, err := p.deps.Store.CreateModule(ctx, courseID, strings.TrimSpace(meta.ModuleName))
		if err != nil {
			return "", &PersistError{Stage: StageModule, Err: err}
		}
		moduleID = id
	}
	noteID, err := p.deps.Store.InsertNote(ctx, storage.NoteInput{
		CourseID:       courseID,
		ModuleID:       moduleID,
		CreatorName:    strings.TrimSpace(meta.CreatorName),
		Title:          strings.TrimSpace(meta.Title),
		Language:       language,
		Kit:            kit,
		VisualImageURL: visual,
	})
	if err != nil {
		return "", &PersistError{Stage: StageNote, Err: err}
	}
	return noteID, nil
}
