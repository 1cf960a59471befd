package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplaySnippet(t *testing.T) {
	out := DisplaySnippet("Hello\x00   world \n\t again", 100)
	require.Equal(t, "Hello world again", out)
}

func TestDisplaySnippetTruncatesOnRunes(t *testing.T) {
	out := DisplaySnippet(strings.Repeat("é", 20), 5)
	require.Equal(t, "ééééé...", out)
}

func TestExcerptStripsMarkdown(t *testing.T) {
	md := "# Thermodynamics\n\n## First law\n\n**Energy** is `conserved`.\n\n```go\nfmt.Println()\n```\n$$E = mc^2$$\n- closed systems"
	out := Excerpt(md, 200)
	require.Equal(t, "Thermodynamics First law Energy is conserved. closed systems", out)
}
