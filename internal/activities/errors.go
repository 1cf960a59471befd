package activities

import (
	"errors"

	"studykit/internal/util"

	"go.temporal.io/sdk/temporal"
)

// Error kinds carried as the application error type so the workflow and the
// API can tell failures apart without matching on message text.
const (
	KindUnsupportedFormat = "UnsupportedFormat"
	KindExtractionFailed  = "ExtractionFailed"
	KindEmptyScan         = "EmptyScan"
	KindOCREmpty          = "OCREmpty"
	KindOCRUnavailable    = "OCRUnavailable"
	KindInsufficientText  = "InsufficientText"
	KindAuth              = "AuthError"
	KindTruncated         = "TruncatedResponse"
	KindMalformedSections = "MalformedSections"
	KindInvalidQuizJSON   = "InvalidQuizJSON"
	KindInvalidRequest    = "InvalidRequest"
	KindInternal          = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{util.ErrUnsupportedFormat, KindUnsupportedFormat},
	{util.ErrExtractionFailed, KindExtractionFailed},
	{util.ErrEmptyScan, KindEmptyScan},
	{util.ErrOCREmpty, KindOCREmpty},
	{util.ErrOCRUnavailable, KindOCRUnavailable},
	{util.ErrInsufficientText, KindInsufficientText},
	{util.ErrAuth, KindAuth},
	// Truncation is checked before malformed sections; a truncated response is both.
	{util.ErrTruncatedResponse, KindTruncated},
	{util.ErrMalformedSections, KindMalformedSections},
	{util.ErrInvalidQuizJSON, KindInvalidQuizJSON},
	{util.ErrInvalidRequest, KindInvalidRequest},
}

func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// KindError maps a kind back to its sentinel, for callers that only see the
// kind string.
func KindError(kind string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}

// userFacing wraps pipeline errors that retrying cannot fix.
func userFacing(err error) error {
	kind := ErrorKind(err)
	if kind == KindInternal {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, err)
}
