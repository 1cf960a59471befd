package extract

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"studykit/internal/util"
)

// Format is the closed set of input kinds the extractor understands. Adding a
// format means adding a constant here and a case in Extract.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
	FormatText
	FormatImage
)

const docxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

var imageSuffixes = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {}, ".gif": {}, ".bmp": {}, ".tif": {}, ".tiff": {},
}

// Detect picks the extraction strategy from the declared media type, falling
// back to the file name suffix when the media type is absent or generic.
func Detect(mediaType, name string) (Format, error) {
	mt := normalizeMediaType(mediaType)
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case mt == "application/pdf" || ext == ".pdf":
		return FormatPDF, nil
	case mt == docxMediaType || ext == ".docx":
		return FormatDOCX, nil
	case strings.HasPrefix(mt, "text/") || ext == ".txt":
		return FormatText, nil
	case strings.HasPrefix(mt, "image/"):
		return FormatImage, nil
	}
	if mt == "" || mt == "application/octet-stream" {
		if _, ok := imageSuffixes[ext]; ok {
			return FormatImage, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w (%s, %q)", util.ErrUnsupportedFormat, name, mediaType)
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	return strings.ToLower(mediaType)
}

// ImageMediaType returns a concrete image media type for OCR engines, deriving
// it from the suffix when the upload was labelled generically.
func ImageMediaType(mediaType, name string) string {
	mt := normalizeMediaType(mediaType)
	if strings.HasPrefix(mt, "image/") {
		return mt
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}
