package prompt

import (
	"fmt"
	"strings"

	"studykit/internal/util"
)

type TechnicalLevel string

const (
	Beginner     TechnicalLevel = "beginner"
	Intermediate TechnicalLevel = "intermediate"
	Advanced     TechnicalLevel = "advanced"
)

type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

type Language string

const (
	English Language = "en"
	French  Language = "fr"
)

// Style holds the generation parameters chosen by the caller.
type Style struct {
	DetailLevel    int            `json:"detail_level"`
	UseMetaphors   bool           `json:"use_metaphors"`
	TechnicalLevel TechnicalLevel `json:"technical_level"`
	Length         Length         `json:"length"`
	Language       Language       `json:"language"`
	CustomPrompt   string         `json:"custom_prompt,omitempty"`
}

func DefaultStyle() Style {
	return Style{DetailLevel: 5, TechnicalLevel: Intermediate, Length: Medium, Language: English}
}

func (s Style) Validate() error {
	if s.DetailLevel < 1 || s.DetailLevel > 10 {
		return fmt.Errorf("%w: detail level must be between 1 and 10, got %d", util.ErrInvalidRequest, s.DetailLevel)
	}
	switch s.TechnicalLevel {
	case Beginner, Intermediate, Advanced:
	default:
		return fmt.Errorf("%w: technical level must be beginner, intermediate or advanced, got %q", util.ErrInvalidRequest, s.TechnicalLevel)
	}
	switch s.Length {
	case Short, Medium, Long:
	default:
		return fmt.Errorf("%w: length must be short, medium or long, got %q", util.ErrInvalidRequest, s.Length)
	}
	switch s.Language {
	case English, French:
	default:
		return fmt.Errorf("%w: language must be en or fr, got %q", util.ErrInvalidRequest, s.Language)
	}
	return nil
}

func detailDescriptor(level int) string {
	switch {
	case level >= 8:
		return "very detailed"
	case level >= 5:
		return "moderate detail"
	default:
		return "concise"
	}
}

var levelGuide = map[TechnicalLevel]string{
	Beginner:     "Explain concepts from scratch, use simple language, avoid jargon",
	Intermediate: "Assume basic knowledge, explain advanced concepts clearly",
	Advanced:     "Use technical terminology, dive deep into complex topics",
}

var lengthGuide = map[Length]string{
	Short:  "Brief and concise (~3-5 key sections)",
	Medium: "Comprehensive coverage (~5-8 sections)",
	Long:   "Detailed and exhaustive (~8-12 sections)",
}

func (l Language) Name() string {
	if l == French {
		return "French"
	}
	return "English"
}

func normalizeCustom(s string) string {
	return strings.TrimSpace(s)
}
