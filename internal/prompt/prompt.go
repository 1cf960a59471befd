// Package prompt assembles the single instruction sent to the text model.
package prompt

import (
	"fmt"
	"strings"
)

const (
	// MaxExtractedChars bounds the document text embedded in the prompt so
	// the model keeps enough output budget for all three sections.
	MaxExtractedChars = 50000
	TruncationMarker  = "\n\n[... Content truncated for processing. The above represents the main content of the document.]"

	MinQuestions = 8
	MaxQuestions = 15
)

// Section delimiters. The model must emit each pair exactly.
const (
	VisualPromptStart = "---VISUAL_PROMPT_START---"
	VisualPromptEnd   = "---VISUAL_PROMPT_END---"
	QuizStart         = "---QCM_START---"
	QuizEnd           = "---QCM_END---"
	NotesStart        = "---NOTES_START---"
	NotesEnd          = "---NOTES_END---"
)

// Truncate cuts text to limit runes and appends TruncationMarker. Text at or
// under the limit is returned unchanged.
func Truncate(text string, limit int) (string, bool) {
	if limit <= 0 {
		limit = MaxExtractedChars
	}
	if len(text) <= limit {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]) + TruncationMarker, true
}

// Build returns the generation instruction for already-truncated text.
func Build(text string, s Style) string {
	metaphors := "No"
	notesTone := "Direct explanations"
	if s.UseMetaphors {
		metaphors = "Yes - include creative analogies to explain concepts"
		notesTone = "Creative metaphors and analogies"
	}
	var custom string
	if c := normalizeCustom(s.CustomPrompt); c != "" {
		custom = "\n**Custom Instructions from User:**\n" + c + "\n"
	}
	lang := s.Language.Name()

	var b strings.Builder
	b.WriteString("You are an expert educational content generator. Your task is to create comprehensive study materials from the provided course content.\n\n")
	b.WriteString("**Input Content:**\n")
	b.WriteString(text)
	b.WriteString("\n\n**Generation Parameters:**\n")
	fmt.Fprintf(&b, "- Detail Level: %d/10 (%s)\n", s.DetailLevel, detailDescriptor(s.DetailLevel))
	fmt.Fprintf(&b, "- Use Metaphors: %s\n", metaphors)
	fmt.Fprintf(&b, "- Technical Level: %s (%s)\n", s.TechnicalLevel, levelGuide[s.TechnicalLevel])
	fmt.Fprintf(&b, "- Target Length: %s\n", lengthGuide[s.Length])
	fmt.Fprintf(&b, "- Language: %s\n", lang)
	b.WriteString(custom)

	b.WriteString(`
**Your task is to generate THREE outputs in the following EXACT format and order:**

IMPORTANT: Generate sections in THIS EXACT ORDER to ensure completion:
1. VISUAL_PROMPT (shortest - do this first)
2. QCM (quiz questions)
3. NOTES (longest - do this last)

`)
	b.WriteString(VisualPromptStart + "\n")
	b.WriteString(`[Generate a SHORT prompt (max 200 words) for AI image generation to create an EDUCATIONAL STUDY SHEET poster.
Extract 4-6 key concepts from the content and create a poster prompt like:
"Educational study sheet poster about [TOPIC]. Dark blue gradient background.
Title: '[TOPIC]'. Key concepts in white rounded boxes: '[CONCEPT 1]', '[CONCEPT 2]', '[CONCEPT 3]', '[CONCEPT 4]'.
Simple icons, professional typography, minimalist style, high contrast."]
`)
	b.WriteString(VisualPromptEnd + "\n\n")

	b.WriteString(QuizStart + "\n")
	b.WriteString(`{
  "questions": [
    {
      "id": 1,
      "question": "Question text here",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": 2,
      "explanation": "Brief explanation of why this is correct",
      "difficulty": "medium",
      "topic": "Topic name"
    }
  ],
  "metadata": {
    "total_questions": 10,
    "estimated_time_minutes": 8,
    "passing_score_percentage": 60
  }
}
`)
	fmt.Fprintf(&b, "Generate %d-%d questions total, each with exactly 4 options and a 0-based correct_answer index, mix of easy (30%%), medium (50%%), hard (20%%).\n", MinQuestions, MaxQuestions)
	b.WriteString(QuizEnd + "\n\n")

	b.WriteString(NotesStart + "\n")
	fmt.Fprintf(&b, `[Generate comprehensive markdown notes with:
- Clear hierarchical structure (# ## ### headers)
- Explanations at detail level %d/10
- %s
- Code examples where relevant
- LaTeX math: $inline$ and $$blocks$$
- Key concepts highlighted]
`, s.DetailLevel, notesTone)
	b.WriteString(NotesEnd + "\n\n")

	fmt.Fprintf(&b, `CRITICAL REQUIREMENTS:
- Language: %s
- You MUST include ALL THREE SECTIONS with EXACT delimiters
- Generate in order: VISUAL_PROMPT → QCM → NOTES
- Keep VISUAL_PROMPT under 200 words
- The QCM section must be valid JSON only, with no markdown fences
- If running low on space, keep notes concise but ALWAYS complete all 3 sections`, lang)
	return b.String()
}

// ForDocument truncates the extracted text to limit and builds the prompt.
func ForDocument(text string, s Style, limit int) (string, bool) {
	embedded, truncated := Truncate(text, limit)
	return Build(embedded, s), truncated
}
