// Package extract turns uploaded files into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"studykit/internal/logger"
	"studykit/internal/metrics"
	"studykit/internal/ocr"
	"studykit/internal/util"

	"golang.org/x/sync/errgroup"
)

// MinNativePDFChars is the trimmed text-layer length under which a PDF is
// treated as scanned and sent to OCR.
const MinNativePDFChars = 50

type File struct {
	Name      string
	MediaType string
	Data      []byte
}

type Extractor struct {
	ocr     ocr.Recognizer
	workers int
	log     *logger.Logger
}

func New(rec ocr.Recognizer, workers int, log *logger.Logger) *Extractor {
	if workers <= 0 {
		workers = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{ocr: rec, workers: workers, log: log.With("component", "extract")}
}

func (e *Extractor) Extract(ctx context.Context, f File) (string, error) {
	format, err := Detect(f.MediaType, f.Name)
	if err != nil {
		return "", err
	}
	var text string
	switch format {
	case FormatPDF:
		text, err = e.extractPDF(ctx, f)
	case FormatDOCX:
		text, err = docxText(f.Data)
		if err != nil {
			err = fmt.Errorf("%w: %v", util.ErrExtractionFailed, err)
		}
	case FormatText:
		return util.DecodePlainText(f.Data), nil
	case FormatImage:
		text, err = e.recognize(ctx, f.Data, ImageMediaType(f.MediaType, f.Name), ocr.ImageOptions())
	}
	if err != nil {
		return "", err
	}
	return util.SanitizeText(text), nil
}

func (e *Extractor) extractPDF(ctx context.Context, f File) (string, error) {
	native, nativeErr := pdfText(f.Data)
	if nativeErr == nil {
		trimmed := strings.TrimSpace(native)
		if utf8.RuneCountInString(trimmed) >= MinNativePDFChars {
			return trimmed, nil
		}
		e.log.Info("pdf text layer too thin, trying ocr", "file", f.Name, "chars", utf8.RuneCountInString(trimmed))
	} else {
		e.log.Warn("native pdf extraction failed, trying ocr", "file", f.Name, "error", nativeErr)
	}

	text, err := e.recognize(ctx, f.Data, "application/pdf", ocr.ScannedPDFOptions())
	if err == nil {
		return text, nil
	}
	if nativeErr != nil {
		return "", fmt.Errorf("%w: %v; ocr: %v", util.ErrExtractionFailed, nativeErr, err)
	}
	return "", fmt.Errorf("%w: %v", util.ErrEmptyScan, err)
}

func (e *Extractor) recognize(ctx context.Context, data []byte, mediaType string, opts ocr.Options) (string, error) {
	if e.ocr == nil {
		return "", fmt.Errorf("%w: no ocr engine configured", util.ErrOCRUnavailable)
	}
	res, err := e.ocr.Recognize(ctx, data, mediaType, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ExtractAll extracts every file concurrently and joins the results in input
// order, each preceded by a separator naming its source file. The first
// failure aborts the whole batch.
func (e *Extractor) ExtractAll(ctx context.Context, files []File) (string, error) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds()) }()

	parts := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range files {
		g.Go(func() error {
			text, err := e.Extract(gctx, f)
			if err != nil {
				return &FileError{Name: f.Name, Err: err}
			}
			parts[i] = Separator(f.Name) + text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, "\n\n"), nil
}

// Separator is the visible marker placed before each file's text.
func Separator(name string) string {
	return "\n\n--- Content from " + name + " ---\n\n"
}

// FileError names the file that failed extraction.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to parse file %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func IsUserError(err error) bool {
	return errors.Is(err, util.ErrUnsupportedFormat) ||
		errors.Is(err, util.ErrExtractionFailed) ||
		errors.Is(err, util.ErrEmptyScan) ||
		errors.Is(err, util.ErrOCREmpty)
}
