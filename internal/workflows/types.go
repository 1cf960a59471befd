package workflows

import (
	"studykit/internal/pipeline"
	"studykit/internal/prompt"
)

// StudyKitInput starts an asynchronous job. Uploaded files are staged on disk
// and referenced by the manifest; credentials never enter workflow history.
type StudyKitInput struct {
	JobID        string        `json:"job_id"`
	ManifestPath string        `json:"manifest_path"`
	Style        prompt.Style  `json:"style"`
	Meta         pipeline.Meta `json:"meta"`
}

type JobStatus struct {
	JobID       string            `json:"job_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	FailKind    string            `json:"fail_kind,omitempty"`
	FailReason  string            `json:"fail_reason,omitempty"`
	NoteID      string            `json:"note_id,omitempty"`
	VisualURL   *string           `json:"visual_url,omitempty"`
	Steps       map[string]string `json:"steps"`
}
