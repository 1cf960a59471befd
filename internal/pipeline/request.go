package pipeline

import (
	"fmt"
	"strings"

	"studykit/internal/extract"
	"studykit/internal/models"
	"studykit/internal/prompt"
	"studykit/internal/providers"
	"studykit/internal/util"
)

const (
	SourceCaller   = "caller"
	SourceOperator = "operator"
)

// Credential selects the text generation key: the caller's own key, or the
// operator's configured key. Never both.
type Credential struct {
	Key    string `json:"-"`
	Source string `json:"source"`
}

// Meta places the generated note in the catalog.
type Meta struct {
	InstitutionID string `json:"institution_id"`
	CourseID      string `json:"course_id,omitempty"`
	CourseCode    string `json:"course_code,omitempty"`
	CourseName    string `json:"course_name,omitempty"`
	ModuleID      string `json:"module_id,omitempty"`
	ModuleName    string `json:"module_name,omitempty"`
	CreatorName   string `json:"creator_name"`
	Title         string `json:"title"`
}

type Request struct {
	Files      []extract.File
	Credential Credential
	Style      prompt.Style
	Meta       Meta
}

type Result struct {
	NoteID        string      `json:"noteId"`
	NotesMarkdown string      `json:"notesMarkdown"`
	Quiz          models.Quiz `json:"qcmJson"`
	VisualURL     *string     `json:"visualUrl"`
}

func (r Request) Validate() error {
	if len(r.Files) == 0 {
		return fmt.Errorf("%w: at least one file is required", util.ErrInvalidRequest)
	}
	for _, f := range r.Files {
		if len(f.Data) == 0 {
			return fmt.Errorf("%w: file %s is empty", util.ErrInvalidRequest, f.Name)
		}
	}
	if err := r.Credential.Validate(); err != nil {
		return err
	}
	if err := r.Style.Validate(); err != nil {
		return err
	}
	return r.Meta.Validate()
}

func (c Credential) Validate() error {
	switch c.Source {
	case SourceCaller:
		if !providers.LooksLikeAnthropicKey(c.Key) {
			return fmt.Errorf("%w: a valid API key is required", util.ErrAuth)
		}
	case SourceOperator:
		if strings.TrimSpace(c.Key) != "" {
			return fmt.Errorf("%w: operator credential cannot carry a caller key", util.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown credential source %q", util.ErrInvalidRequest, c.Source)
	}
	return nil
}

func (m Meta) Validate() error {
	switch {
	case strings.TrimSpace(m.InstitutionID) == "":
		return fmt.Errorf("%w: institution is required", util.ErrInvalidRequest)
	case strings.TrimSpace(m.CreatorName) == "":
		return fmt.Errorf("%w: creator name is required", util.ErrInvalidRequest)
	case strings.TrimSpace(m.Title) == "":
		return fmt.Errorf("%w: title is required", util.ErrInvalidRequest)
	case m.CourseID == "" && (strings.TrimSpace(m.CourseCode) == "" || strings.TrimSpace(m.CourseName) == ""):
		return fmt.Errorf("%w: a course id or a course code and name are required", util.ErrInvalidRequest)
	}
	return nil
}
