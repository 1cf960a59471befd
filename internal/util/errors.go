package util

import "errors"

var (
	// Extraction.
	ErrUnsupportedFormat = errors.New("unsupported file type: upload PDF, DOCX, TXT or image files")
	ErrExtractionFailed  = errors.New("failed to extract text: the file may be corrupted or password-protected, try uploading it as images")
	ErrEmptyScan         = errors.New("this PDF appears to be a scanned document with no extractable text: upload the pages as images (PNG, JPG) or use a PDF with selectable text")
	ErrOCRUnavailable    = errors.New("ocr unavailable")
	ErrOCREmpty          = errors.New("ocr produced no usable text")
	ErrInsufficientText  = errors.New("could not extract meaningful text from the uploaded files")

	// Generation.
	ErrAuth              = errors.New("text generation credential was rejected: check the API key")
	ErrTruncatedResponse = errors.New("response was cut off by the output length limit: try a shorter document")
	ErrMalformedSections = errors.New("response is missing required sections")
	ErrInvalidQuizJSON   = errors.New("quiz section is not valid JSON")

	// Visuals.
	ErrNoImageProduced = errors.New("no image produced")

	// Provider classification.
	ErrQuotaExhausted = errors.New("provider quota exhausted")
	ErrRateLimited    = errors.New("provider rate limited")
	ErrTransient      = errors.New("transient provider error")

	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)
