package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"studykit/internal/activities"
	"studykit/internal/metrics"
	"studykit/internal/pipeline"
	"studykit/internal/util"
)

var (
	errAdminNotConfigured = errors.New("admin password not configured")
	errAdminDenied        = errors.New("invalid admin password")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// kindStatus maps pipeline error kinds to HTTP status and code. User-facing
// kinds keep the error message, which already says what to do next.
var kindStatus = map[string]struct {
	status int
	code   string
}{
	activities.KindInvalidRequest:    {http.StatusBadRequest, "SK-API-4001"},
	activities.KindUnsupportedFormat: {http.StatusUnsupportedMediaType, "SK-EXT-4150"},
	activities.KindExtractionFailed:  {http.StatusUnprocessableEntity, "SK-EXT-4221"},
	activities.KindEmptyScan:         {http.StatusUnprocessableEntity, "SK-EXT-4222"},
	activities.KindOCREmpty:          {http.StatusUnprocessableEntity, "SK-EXT-4223"},
	activities.KindInsufficientText:  {http.StatusUnprocessableEntity, "SK-EXT-4224"},
	activities.KindOCRUnavailable:    {http.StatusServiceUnavailable, "SK-OCR-5030"},
	activities.KindAuth:              {http.StatusUnauthorized, "SK-GEN-4010"},
	activities.KindTruncated:         {http.StatusBadGateway, "SK-GEN-5021"},
	activities.KindMalformedSections: {http.StatusBadGateway, "SK-GEN-5022"},
	activities.KindInvalidQuizJSON:   {http.StatusBadGateway, "SK-GEN-5023"},
}

var persistCodes = map[string]string{
	pipeline.StageCourse: "SK-DB-5001",
	pipeline.StageModule: "SK-DB-5002",
	pipeline.StageNote:   "SK-DB-5003",
}

func statusFor(err error) int {
	var pe *pipeline.PersistError
	if errors.As(err, &pe) {
		if errors.Is(pe.Err, util.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, errAdminDenied):
		return http.StatusUnauthorized
	case errors.Is(err, errAdminNotConfigured):
		return http.StatusInternalServerError
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	}
	if ks, ok := kindStatus[activities.ErrorKind(err)]; ok {
		return ks.status
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": toAPIError(code, err)})
}

func toAPIError(status int, err error) APIError {
	if err == nil {
		return APIError{Code: "SK-API-5000", Message: "unknown error"}
	}
	var pe *pipeline.PersistError
	if errors.As(err, &pe) {
		if errors.Is(pe.Err, util.ErrNotFound) {
			return APIError{Code: "SK-DB-4041", Message: "failed to " + pe.Stage + ": course not found"}
		}
		return APIError{Code: persistCodes[pe.Stage], Message: "failed to " + pe.Stage}
	}
	kind := activities.ErrorKind(err)
	if ks, ok := kindStatus[kind]; ok && ks.status == status {
		return APIError{Code: ks.code, Message: err.Error(), Kind: kind}
	}
	switch status {
	case http.StatusBadRequest:
		return APIError{Code: "SK-API-4000", Message: err.Error()}
	case http.StatusUnauthorized:
		return APIError{Code: "SK-ADM-4010", Message: err.Error()}
	case http.StatusNotFound:
		return APIError{Code: "SK-API-4004", Message: "not found"}
	case http.StatusMethodNotAllowed:
		return APIError{Code: "SK-API-4005", Message: err.Error()}
	case http.StatusConflict:
		return APIError{Code: "SK-WF-4090", Message: err.Error()}
	case http.StatusRequestEntityTooLarge:
		return APIError{Code: "SK-API-4130", Message: "upload too large"}
	case http.StatusServiceUnavailable:
		return APIError{Code: "SK-API-5030", Message: err.Error()}
	}
	if errors.Is(err, errAdminNotConfigured) {
		return APIError{Code: "SK-ADM-5001", Message: err.Error()}
	}
	return APIError{Code: "SK-API-5000", Message: "internal error"}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := routeLabel(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	})
}

// routeLabel collapses ids so metric cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/notes/"):
		return "/notes/:id"
	case strings.HasPrefix(path, "/jobs/"):
		return "/jobs/:id"
	case strings.HasPrefix(path, "/visuals/"):
		return "/visuals"
	}
	switch path {
	case "/healthz", "/metrics", "/generate", "/generate/async", "/notes", "/vote", "/courses":
		return path
	}
	return "other"
}
