package activities

import (
	"studykit/internal/models"
	"studykit/internal/pipeline"
	"studykit/internal/prompt"
)

// StagedFile is one uploaded file written to the job's staging directory.
type StagedFile struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Path      string `json:"path"`
}

// JobManifest describes an asynchronous generation request on disk.
type JobManifest struct {
	JobID string        `json:"job_id"`
	Files []StagedFile  `json:"files"`
	Style prompt.Style  `json:"style"`
	Meta  pipeline.Meta `json:"meta"`
}

type ExtractTextInput struct {
	JobID        string `json:"job_id"`
	ManifestPath string `json:"manifest_path"`
}

type ExtractTextOutput struct {
	TextPath string `json:"text_path"`
	Chars    int    `json:"chars"`
}

type GenerateStudyKitInput struct {
	JobID    string       `json:"job_id"`
	TextPath string       `json:"text_path"`
	Style    prompt.Style `json:"style"`
	Title    string       `json:"title"`
}

type GenerateStudyKitOutput struct {
	Kit models.StudyKit `json:"kit"`
}

type RenderVisualInput struct {
	Prompt string `json:"prompt"`
	Title  string `json:"title"`
}

type RenderVisualOutput struct {
	VisualURL *string `json:"visual_url"`
}

type PersistNoteInput struct {
	Meta      pipeline.Meta   `json:"meta"`
	Language  string          `json:"language"`
	Kit       models.StudyKit `json:"kit"`
	VisualURL *string         `json:"visual_url"`
}

type PersistNoteOutput struct {
	NoteID string `json:"note_id"`
}

// JobResult is written as result.json when a job finishes either way.
type JobResult struct {
	JobID     string           `json:"job_id"`
	Status    string           `json:"status"`
	Result    *pipeline.Result `json:"result,omitempty"`
	ErrorKind string           `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type WriteJobResultInput struct {
	JobID  string    `json:"job_id"`
	Result JobResult `json:"result"`
}
