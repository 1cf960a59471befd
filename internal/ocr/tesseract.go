package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"studykit/internal/util"
)

// CommandRunner executes an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// TesseractEngine runs OCR locally with the tesseract CLI. PDFs are rasterised
// with pdftoppm first. No network access is involved.
type TesseractEngine struct {
	tesseract string
	pdftoppm  string
	run       CommandRunner
}

func NewTesseractEngine(tesseractPath, pdftoppmPath string) *TesseractEngine {
	return NewTesseractEngineWithRunner(tesseractPath, pdftoppmPath, execRunner)
}

func NewTesseractEngineWithRunner(tesseractPath, pdftoppmPath string, run CommandRunner) *TesseractEngine {
	if tesseractPath == "" {
		tesseractPath = "tesseract"
	}
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	return &TesseractEngine{tesseract: tesseractPath, pdftoppm: pdftoppmPath, run: run}
}

func (t *TesseractEngine) Recognize(ctx context.Context, data []byte, mediaType string, opts Options) (Result, error) {
	langs := strings.Join(opts.Languages, "+")
	if langs == "" {
		langs = "eng"
	}
	tmpDir, err := os.MkdirTemp("", "studykit-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("create ocr temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	var images []string
	if isPDF(mediaType) {
		images, err = t.rasterise(ctx, tmpDir, data)
		if err != nil {
			return Result{}, err
		}
	} else {
		path := filepath.Join(tmpDir, "input"+imageExt(mediaType))
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return Result{}, fmt.Errorf("write ocr input: %w", err)
		}
		images = []string{path}
	}

	pages := make([]string, 0, len(images))
	for _, img := range images {
		out, err := t.run(ctx, t.tesseract, img, "stdout", "-l", langs, "--psm", "3")
		if err != nil {
			return Result{}, fmt.Errorf("tesseract page %d: %w", len(pages)+1, err)
		}
		pages = append(pages, strings.TrimSpace(string(out)))
	}
	return requireMinChars(Result{Text: strings.Join(pages, "\n\n"), Pages: len(pages), Engine: "tesseract"}, opts.MinChars)
}

func (t *TesseractEngine) rasterise(ctx context.Context, dir string, data []byte) ([]string, error) {
	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write ocr input: %w", err)
	}
	prefix := filepath.Join(dir, "page")
	if _, err := t.run(ctx, t.pdftoppm, "-png", "-r", "300", pdfPath, prefix); err != nil {
		return nil, fmt.Errorf("rasterise pdf: %w", err)
	}
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("%w: no page images generated from pdf", util.ErrOCRUnavailable)
	}
	// pdftoppm zero-pads page numbers to a common width, so lexical order is page order.
	sort.Strings(images)
	return images, nil
}

func imageExt(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/tiff":
		return ".tif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".png"
	}
}
