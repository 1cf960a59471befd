package models

import "time"

type Course struct {
	CourseID      string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	NotesCount    int       `json:"notes_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type Module struct {
	ModuleID    string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OrderIndex  int       `json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
}

type Note struct {
	NoteID         string    `json:"id"`
	CourseID       string    `json:"course_id"`
	CourseCode     string    `json:"course_code,omitempty"`
	CourseName     string    `json:"course_name,omitempty"`
	InstitutionID  string    `json:"institution_id,omitempty"`
	ModuleID       *string   `json:"module_id"`
	ModuleName     *string   `json:"module_name,omitempty"`
	CreatorName    string    `json:"creator_name"`
	Title          string    `json:"title"`
	Language       string    `json:"language"`
	NotesMarkdown  string    `json:"notes_markdown"`
	Quiz           Quiz      `json:"qcm_json"`
	VisualPrompt   string    `json:"visual_prompt"`
	VisualImageURL *string   `json:"visual_image_url"`
	Upvotes        int       `json:"upvotes"`
	Downvotes      int       `json:"downvotes"`
	ViewsCount     int       `json:"views_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NoteSummary is the gallery projection of a note: no quiz payload, and the
// notes body reduced to a short excerpt.
type NoteSummary struct {
	NoteID         string    `json:"id"`
	CourseID       string    `json:"course_id"`
	CourseCode     string    `json:"course_code"`
	CourseName     string    `json:"course_name"`
	InstitutionID  string    `json:"institution_id"`
	ModuleID       *string   `json:"module_id"`
	CreatorName    string    `json:"creator_name"`
	Title          string    `json:"title"`
	Language       string    `json:"language"`
	Excerpt        string    `json:"excerpt"`
	VisualImageURL *string   `json:"visual_image_url"`
	Upvotes        int       `json:"upvotes"`
	Downvotes      int       `json:"downvotes"`
	ViewsCount     int       `json:"views_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Topic         string   `json:"topic"`
}

type QuizMetadata struct {
	TotalQuestions         int `json:"total_questions"`
	EstimatedTimeMinutes   int `json:"estimated_time_minutes"`
	PassingScorePercentage int `json:"passing_score_percentage"`
}

type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
	Metadata  QuizMetadata   `json:"metadata"`
}

// StudyKit is the validated output of one generation call.
type StudyKit struct {
	NotesMarkdown string `json:"notes_markdown"`
	Quiz          Quiz   `json:"qcm_json"`
	VisualPrompt  string `json:"visual_prompt"`
}

const (
	VoteUp   = "up"
	VoteDown = "down"
)

type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}
