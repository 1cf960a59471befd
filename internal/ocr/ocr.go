// Package ocr turns scanned documents and images into text. A hosted engine is
// preferred and a local tesseract install is used when it is missing or fails.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"studykit/internal/util"
)

const (
	// MinCharsScannedPDF applies when a PDF text layer was too thin.
	MinCharsScannedPDF = 50
	// MinCharsImage applies to direct image uploads.
	MinCharsImage = 10
)

type Options struct {
	Languages []string
	MinChars  int
}

type Result struct {
	Text   string `json:"text"`
	Pages  int    `json:"pages"`
	Engine string `json:"engine"`
}

type Recognizer interface {
	Recognize(ctx context.Context, data []byte, mediaType string, opts Options) (Result, error)
}

func ImageOptions() Options {
	return Options{Languages: []string{"eng", "fra"}, MinChars: MinCharsImage}
}

func ScannedPDFOptions() Options {
	return Options{Languages: []string{"eng"}, MinChars: MinCharsScannedPDF}
}

func isPDF(mediaType string) bool {
	return strings.EqualFold(strings.TrimSpace(mediaType), "application/pdf")
}

func requireMinChars(res Result, minChars int) (Result, error) {
	res.Text = strings.TrimSpace(res.Text)
	if n := utf8.RuneCountInString(res.Text); n < minChars {
		return Result{}, fmt.Errorf("%w: %s returned %d chars, need %d", util.ErrOCREmpty, res.Engine, n, minChars)
	}
	return res, nil
}
