package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"strings"

	"studykit/internal/activities"
	"studykit/internal/blobstore"
	"studykit/internal/config"
	"studykit/internal/extract"
	"studykit/internal/logger"
	"studykit/internal/models"
	"studykit/internal/pipeline"
	"studykit/internal/prompt"
	"studykit/internal/storage"
	"studykit/internal/util"
	"studykit/internal/workflows"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

type Generator interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type NoteStore interface {
	List(ctx context.Context, f storage.NoteFilter) ([]models.NoteSummary, int, error)
	Get(ctx context.Context, noteID string) (models.Note, error)
	IncrementViews(ctx context.Context, noteID string) error
	Delete(ctx context.Context, noteID string) (*string, error)
	DeleteAll(ctx context.Context) (int, []string, error)
}

type CourseStore interface {
	List(ctx context.Context, institutionID string) ([]models.Course, error)
	Create(ctx context.Context, c models.Course) (models.Course, error)
}

type VoteStore interface {
	Cast(ctx context.Context, noteID, voter, voteType string) (models.VoteCounts, error)
}

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type Deps struct {
	Generator   Generator
	Notes       NoteStore
	Courses     CourseStore
	Votes       VoteStore
	Blobs       blobstore.Store
	Temporal    WorkflowClient
	Ping        func(ctx context.Context) error
	OperatorKey bool
}

type Server struct {
	cfg  config.Config
	deps Deps
	log  *logger.Logger
}

func NewServer(cfg config.Config, deps Deps, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{cfg: cfg, deps: deps, log: log.With("component", "api")}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/generate/async", s.handleGenerateAsync)
	mux.HandleFunc("/jobs/", s.handleJob)
	mux.HandleFunc("/notes", s.handleNotes)
	mux.HandleFunc("/notes/", s.handleNote)
	mux.HandleFunc("/vote", s.handleVote)
	mux.HandleFunc("/courses", s.handleCourses)
	if s.cfg.ObjectStorageMode == blobstore.ModeLocal && s.cfg.VisualDir != "" {
		mux.Handle("/visuals/", http.StripPrefix("/visuals/", http.FileServer(http.Dir(s.cfg.VisualDir))))
	}
	return withCORS(withMetrics(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type generateResponse struct {
	Success bool `json:"success"`
	pipeline.Result
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	req, err := s.parseGenerateForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.deps.Generator.Run(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Success: true, Result: res})
}

func (s *Server) handleGenerateAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.deps.Temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("async generation not configured"))
		return
	}
	req, err := s.parseGenerateForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Credential.Source != pipeline.SourceOperator {
		s.fail(w, r, fmt.Errorf("%w: asynchronous jobs run with the server key, set useServerKey=true", util.ErrInvalidRequest))
		return
	}
	if !s.deps.OperatorKey {
		s.fail(w, r, fmt.Errorf("%w: server API key not configured", util.ErrAuth))
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	jobID := uuid.NewString()
	manifest, err := activities.StageJob(s.cfg.DataInRoot, jobID, req.Files, req.Style, req.Meta)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	we, err := s.deps.Temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(jobID),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.StudyKitWorkflow, workflows.StudyKitInput{
		JobID:        jobID,
		ManifestPath: manifest,
		Style:        req.Style,
		Meta:         req.Meta,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	if _, err := uuid.Parse(jobID); err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	var result *activities.JobResult
	var stored activities.JobResult
	if err := util.ReadJSON(activities.ResultPath(s.cfg.DataOutRoot, jobID), &stored); err == nil {
		result = &stored
	}

	var status workflows.JobStatus
	queried := false
	if s.deps.Temporal != nil {
		if resp, err := s.deps.Temporal.QueryWorkflow(r.Context(), workflows.WorkflowID(jobID), "", workflows.QueryGetJobStatus); err == nil {
			queried = resp.Get(&status) == nil
		}
	}
	if !queried {
		if result == nil {
			writeErr(w, http.StatusNotFound, fmt.Errorf("job %s: %w", jobID, util.ErrNotFound))
			return
		}
		status = workflows.JobStatus{JobID: jobID, CurrentStep: "done", Status: result.Status, FailKind: result.ErrorKind, FailReason: result.Error}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": status, "result": result})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		f := storage.NoteFilter{
			InstitutionID: q.Get("institution_id"),
			CourseID:      q.Get("course_id"),
			Language:      q.Get("language"),
			Sort:          q.Get("sort"),
			Limit:         atoiDefault(q.Get("limit"), storage.DefaultListLimit),
			Offset:        atoiDefault(q.Get("offset"), 0),
		}.Normalize()
		notes, total, err := s.deps.Notes.List(r.Context(), f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "total": total, "limit": f.Limit, "offset": f.Offset})
	case http.MethodDelete:
		if err := s.checkAdmin(r); err != nil {
			s.fail(w, r, err)
			return
		}
		count, urls, err := s.deps.Notes.DeleteAll(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		for _, u := range urls {
			s.deleteVisual(r.Context(), u)
		}
		s.log.Warn("all notes deleted", "count", count)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": count})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	noteID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notes/"), "/")
	if _, err := uuid.Parse(noteID); err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		note, err := s.deps.Notes.Get(r.Context(), noteID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.deps.Notes.IncrementViews(r.Context(), noteID); err != nil {
			s.log.Warn("increment views failed", "note_id", noteID, "error", err)
		}
		writeJSON(w, http.StatusOK, note)
	case http.MethodDelete:
		if err := s.checkAdmin(r); err != nil {
			s.fail(w, r, err)
			return
		}
		visual, err := s.deps.Notes.Delete(r.Context(), noteID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if visual != nil {
			s.deleteVisual(r.Context(), *visual)
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		NoteID   string `json:"noteId"`
		VoteType string `json:"voteType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if _, err := uuid.Parse(req.NoteID); err != nil || (req.VoteType != models.VoteUp && req.VoteType != models.VoteDown) {
		s.fail(w, r, fmt.Errorf("%w: noteId and voteType (up or down) are required", util.ErrInvalidRequest))
		return
	}
	counts, err := s.deps.Votes.Cast(r.Context(), req.NoteID, voterID(r), req.VoteType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "upvotes": counts.Upvotes, "downvotes": counts.Downvotes})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := s.deps.Courses.List(r.Context(), r.URL.Query().Get("institution_id"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": courses})
	case http.MethodPost:
		var req struct {
			InstitutionID string `json:"institutionId"`
			Code          string `json:"code"`
			Name          string `json:"name"`
			Description   string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		c := models.Course{
			InstitutionID: strings.TrimSpace(req.InstitutionID),
			Code:          strings.TrimSpace(req.Code),
			Name:          strings.TrimSpace(req.Name),
		}
		if c.InstitutionID == "" || c.Code == "" || c.Name == "" {
			s.fail(w, r, fmt.Errorf("%w: institutionId, code and name are required", util.ErrInvalidRequest))
			return
		}
		if d := strings.TrimSpace(req.Description); d != "" {
			c.Description = &d
		}
		created, err := s.deps.Courses.Create(r.Context(), c)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// parseGenerateForm reads the multipart generation form. Validation of the
// values happens in the pipeline.
func (s *Server) parseGenerateForm(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return pipeline.Request{}, fmt.Errorf("parse multipart: %w", mbe)
		}
		return pipeline.Request{}, fmt.Errorf("%w: parse multipart: %v", util.ErrInvalidRequest, err)
	}
	form := r.MultipartForm
	headers := form.File["file"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	files := make([]extract.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			return pipeline.Request{}, err
		}
		files = append(files, f)
	}

	val := func(k string) string { return strings.TrimSpace(r.FormValue(k)) }
	style := prompt.DefaultStyle()
	if v := val("detailLevel"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("%w: detailLevel must be a number", util.ErrInvalidRequest)
		}
		style.DetailLevel = n
	}
	style.UseMetaphors = val("useMetaphors") == "true"
	if v := val("technicalLevel"); v != "" {
		style.TechnicalLevel = prompt.TechnicalLevel(v)
	}
	if v := val("length"); v != "" {
		style.Length = prompt.Length(v)
	}
	if v := val("language"); v != "" {
		style.Language = prompt.Language(v)
	}
	style.CustomPrompt = val("customPrompt")

	cred := pipeline.Credential{Source: pipeline.SourceCaller, Key: val("claudeApiKey")}
	if val("useServerKey") == "true" {
		cred = pipeline.Credential{Source: pipeline.SourceOperator}
	}
	return pipeline.Request{
		Files:      files,
		Credential: cred,
		Style:      style,
		Meta: pipeline.Meta{
			InstitutionID: val("institutionId"),
			CourseID:      val("courseId"),
			CourseCode:    val("courseCode"),
			CourseName:    val("courseName"),
			ModuleID:      val("moduleId"),
			ModuleName:    val("moduleName"),
			CreatorName:   val("creatorName"),
			Title:         val("title"),
		},
	}, nil
}

func readUpload(fh *multipart.FileHeader) (extract.File, error) {
	src, err := fh.Open()
	if err != nil {
		return extract.File{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return extract.File{}, fmt.Errorf("read upload: %w", err)
	}
	return extract.File{Name: fh.Filename, MediaType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func (s *Server) checkAdmin(r *http.Request) error {
	if s.cfg.AdminPassword == "" {
		return errAdminNotConfigured
	}
	supplied := r.Header.Get("X-Admin-Password")
	if supplied == "" && r.Body != nil {
		var body struct {
			AdminPassword string `json:"adminPassword"`
		}
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body)
		supplied = body.AdminPassword
	}
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.AdminPassword)) != 1 {
		return errAdminDenied
	}
	return nil
}

func (s *Server) deleteVisual(ctx context.Context, publicURL string) {
	if s.deps.Blobs == nil {
		return
	}
	key, ok := s.deps.Blobs.KeyFromURL(publicURL)
	if !ok {
		return
	}
	if err := s.deps.Blobs.Delete(ctx, key); err != nil {
		s.log.Warn("delete visual failed", "key", key, "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log.Info("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeErr(w, status, err)
}

// voterID identifies a voter by a hash of the client address.
func voterID(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		ip = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = "unknown"
		}
	}
	return util.SHA256Hex([]byte(ip))
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Password")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
