package extract

import (
	"testing"

	"studykit/internal/util"

	"github.com/stretchr/testify/require"
)

func TestDetectDispatch(t *testing.T) {
	cases := []struct {
		mediaType string
		name      string
		want      Format
	}{
		{"application/pdf", "slides.bin", FormatPDF},
		{"", "Lecture 3.PDF", FormatPDF},
		{docxMediaType, "notes", FormatDOCX},
		{"application/octet-stream", "week1.docx", FormatDOCX},
		{"text/plain; charset=utf-8", "a", FormatText},
		{"text/markdown", "readme.md", FormatText},
		{"", "transcript.txt", FormatText},
		{"image/png", "board", FormatImage},
		{"image/jpeg", "photo.jpeg", FormatImage},
		{"application/octet-stream", "scan.jpg", FormatImage},
		{"", "page.webp", FormatImage},
	}
	for _, tc := range cases {
		got, err := Detect(tc.mediaType, tc.name)
		require.NoError(t, err, "%s %s", tc.mediaType, tc.name)
		require.Equal(t, tc.want, got, "%s %s", tc.mediaType, tc.name)
	}
}

func TestDetectUnsupported(t *testing.T) {
	for _, tc := range [][2]string{
		{"application/zip", "archive.zip"},
		{"video/mp4", "lecture.mp4"},
		{"", "slides.pptx"},
		{"application/json", "data.png"},
	} {
		f, err := Detect(tc[0], tc[1])
		require.ErrorIs(t, err, util.ErrUnsupportedFormat)
		require.Equal(t, FormatUnknown, f)
	}
}

func TestImageMediaType(t *testing.T) {
	require.Equal(t, "image/png", ImageMediaType("image/png", "x"))
	require.Equal(t, "image/jpeg", ImageMediaType("", "a.JPG"))
	require.Equal(t, "image/png", ImageMediaType("application/octet-stream", "a"))
}
