// Package app wires the generation pipeline from configuration. The API and
// the worker build the same graph.
package app

import (
	"context"
	"fmt"
	"time"

	"studykit/internal/blobstore"
	"studykit/internal/config"
	"studykit/internal/extract"
	"studykit/internal/generation"
	"studykit/internal/logger"
	"studykit/internal/ocr"
	"studykit/internal/pipeline"
	"studykit/internal/providers"
	"studykit/internal/storage"
	"studykit/internal/visual"
)

type App struct {
	DB        *storage.DB
	Providers *providers.Manager
	Blobs     blobstore.Store
	Pipeline  *pipeline.Pipeline
}

func Build(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(dbCtx); err != nil {
		db.Close()
		return nil, err
	}

	pm, err := providers.NewManager(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("providers: %w", err)
	}
	blobs, err := blobstore.New(ctx, cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	hosted := ocr.NewMistralClient(cfg.MistralAPIKey, cfg.MistralOCRURL).
		WithTimeout(time.Duration(cfg.OCRTimeoutSecs) * time.Second)
	var hostedRec ocr.Recognizer
	if hosted.Configured() {
		hostedRec = hosted
	}
	rec := ocr.NewFallback(hostedRec, ocr.NewTesseractEngine(cfg.TesseractPath, cfg.PdftoppmPath), log)

	p := pipeline.New(pipeline.Deps{
		Extractor:   extract.New(rec, cfg.ExtractWorkers, log),
		Generator:   generation.NewClient(pm.Text(), cfg.MaxOutputTokens, storage.NewGenerationCallRepo(db), log),
		Visual:      visual.NewAdapter(pm.ImageProviders(), blobs, log),
		Store:       storage.NewCatalog(db),
		MaxChars:    cfg.MaxExtractedChars,
		OperatorKey: pm.HasOperatorKey(),
	}, log)

	log.Info("pipeline ready",
		"text_model", cfg.GenerationModel,
		"image_providers", pm.ImageCount(),
		"hosted_ocr", hosted.Configured(),
		"object_storage", cfg.ObjectStorageMode,
	)
	return &App{DB: db, Providers: pm, Blobs: blobs, Pipeline: p}, nil
}

func (a *App) Close() {
	if c, ok := a.Blobs.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	a.DB.Close()
}
