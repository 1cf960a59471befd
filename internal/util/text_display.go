package util

import (
	"strings"
	"unicode"
)

func DisplaySnippet(s string, maxRunes int) string {
	return trimClean(s, maxRunes)
}

// Excerpt renders the opening of a markdown document as plain text for list views.
func Excerpt(markdown string, maxRunes int) string {
	lines := strings.Split(markdown, "\n")
	kept := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if inFence || line == "" || line == "---" || strings.HasPrefix(line, "$$") {
			continue
		}
		line = strings.TrimLeft(line, "#>-*+ ")
		kept = append(kept, stripInlineMarkup(line))
	}
	return trimClean(strings.Join(kept, " "), maxRunes)
}

func stripInlineMarkup(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '`', '$':
			return -1
		}
		return r
	}, s)
}

func trimClean(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 240
	}
	s = SanitizeText(s)
	s = strings.Join(strings.Fields(s), " ")

	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsPrint(r) {
			out = append(out, r)
		}
	}
	runes := []rune(strings.TrimSpace(string(out)))
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return string(runes)
}
