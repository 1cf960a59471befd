// Package generation turns one model call into a validated study kit.
package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"studykit/internal/models"
	"studykit/internal/util"
)

const (
	SectionNotes        = "NOTES"
	SectionQuiz         = "QCM"
	SectionVisualPrompt = "VISUAL_PROMPT"

	// Responses shorter than this that still miss sections are reported as
	// cut short rather than malformed.
	shortResponseChars = 500
)

var (
	notesRe  = regexp.MustCompile(`(?s)---NOTES_START---(.*?)---NOTES_END---`)
	quizRe   = regexp.MustCompile(`(?s)---QCM_START---(.*?)---QCM_END---`)
	visualRe = regexp.MustCompile(`(?s)---VISUAL_PROMPT_START---(.*?)---VISUAL_PROMPT_END---`)
	fenceRe  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

// SectionsError reports which delimited sections were absent from a response.
type SectionsError struct {
	Missing []string
	// Truncated is set when the provider stopped at its output token limit.
	Truncated bool
	Short     bool
}

func (e *SectionsError) Error() string {
	msg := fmt.Sprintf("Failed to generate complete study materials. Missing: %s.", strings.Join(e.Missing, ", "))
	switch {
	case e.Truncated:
		msg += " The response was cut off due to length limits. Try with a shorter document."
	case e.Short:
		msg += " The AI response was unexpectedly short. Please try again."
	default:
		msg += " Please try again or use a shorter document."
	}
	return msg
}

func (e *SectionsError) Is(target error) bool {
	if target == util.ErrMalformedSections {
		return true
	}
	return e.Truncated && target == util.ErrTruncatedResponse
}

// ParseSections extracts the three sections from raw model output. It returns
// either a complete kit or an error, never a partial kit.
func ParseSections(raw string) (models.StudyKit, error) {
	notes := notesRe.FindStringSubmatch(raw)
	quiz := quizRe.FindStringSubmatch(raw)
	visual := visualRe.FindStringSubmatch(raw)

	var missing []string
	if notes == nil {
		missing = append(missing, SectionNotes)
	}
	if quiz == nil {
		missing = append(missing, SectionQuiz)
	}
	if visual == nil {
		missing = append(missing, SectionVisualPrompt)
	}
	if len(missing) > 0 {
		return models.StudyKit{}, &SectionsError{Missing: missing, Short: len(raw) < shortResponseChars}
	}

	q, err := parseQuiz(quiz[1])
	if err != nil {
		return models.StudyKit{}, err
	}
	return models.StudyKit{
		NotesMarkdown: strings.TrimSpace(notes[1]),
		Quiz:          q,
		VisualPrompt:  strings.TrimSpace(visual[1]),
	}, nil
}

func parseQuiz(s string) (models.Quiz, error) {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	var q models.Quiz
	if err := json.Unmarshal([]byte(s), &q); err != nil {
		return models.Quiz{}, fmt.Errorf("%w: %v", util.ErrInvalidQuizJSON, err)
	}
	if len(q.Questions) == 0 {
		return models.Quiz{}, fmt.Errorf("%w: no questions", util.ErrInvalidQuizJSON)
	}
	for i, qq := range q.Questions {
		if len(qq.Options) != 4 {
			return models.Quiz{}, fmt.Errorf("%w: question %d has %d options", util.ErrInvalidQuizJSON, i+1, len(qq.Options))
		}
		if qq.CorrectAnswer < 0 || qq.CorrectAnswer > 3 {
			return models.Quiz{}, fmt.Errorf("%w: question %d correct_answer %d out of range", util.ErrInvalidQuizJSON, i+1, qq.CorrectAnswer)
		}
	}
	if q.Metadata.TotalQuestions == 0 {
		q.Metadata.TotalQuestions = len(q.Questions)
	}
	return q, nil
}
