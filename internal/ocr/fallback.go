package ocr

import (
	"context"
	"errors"
	"fmt"

	"studykit/internal/logger"
	"studykit/internal/metrics"
	"studykit/internal/util"
)

// Fallback tries the hosted engine first and the local engine second. Hosted
// failures are logged and never surfaced on their own.
type Fallback struct {
	hosted Recognizer
	local  Recognizer
	log    *logger.Logger
}

func NewFallback(hosted, local Recognizer, log *logger.Logger) *Fallback {
	if log == nil {
		log = logger.Nop()
	}
	return &Fallback{hosted: hosted, local: local, log: log.With("component", "ocr")}
}

func (f *Fallback) Recognize(ctx context.Context, data []byte, mediaType string, opts Options) (Result, error) {
	var hostedErr error
	if f.hosted != nil {
		res, err := f.hosted.Recognize(ctx, data, mediaType, opts)
		switch {
		case err == nil:
			metrics.OCRTotal.WithLabelValues(res.Engine, "ok").Inc()
			return res, nil
		case errors.Is(err, util.ErrOCREmpty):
			metrics.OCRTotal.WithLabelValues("hosted", "empty").Inc()
			return Result{}, err
		}
		hostedErr = err
		metrics.OCRTotal.WithLabelValues("hosted", "error").Inc()
		f.log.Warn("hosted ocr failed, using local engine", "media_type", mediaType, "error", err)
	}
	if f.local == nil {
		if hostedErr == nil {
			hostedErr = errors.New("no ocr engine configured")
		}
		return Result{}, fmt.Errorf("%w: %v", util.ErrOCRUnavailable, hostedErr)
	}
	res, err := f.local.Recognize(ctx, data, mediaType, opts)
	if err != nil {
		if errors.Is(err, util.ErrOCREmpty) {
			metrics.OCRTotal.WithLabelValues("local", "empty").Inc()
			return Result{}, err
		}
		metrics.OCRTotal.WithLabelValues("local", "error").Inc()
		return Result{}, fmt.Errorf("%w: local engine: %v", util.ErrOCRUnavailable, err)
	}
	metrics.OCRTotal.WithLabelValues(res.Engine, "ok").Inc()
	f.log.Debug("ocr complete", "engine", res.Engine, "pages", res.Pages, "chars", len(res.Text))
	return res, nil
}
