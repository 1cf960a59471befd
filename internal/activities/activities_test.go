package activities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studykit/internal/config"
	"studykit/internal/extract"
	"studykit/internal/models"
	"studykit/internal/pipeline"
	"studykit/internal/prompt"
	"studykit/internal/util"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

type stubGenerator struct {
	apiKey string
	err    error
}

func (s *stubGenerator) Generate(ctx context.Context, p, apiKey, title string) (models.StudyKit, error) {
	s.apiKey = apiKey
	if s.err != nil {
		return models.StudyKit{}, s.err
	}
	return models.StudyKit{NotesMarkdown: "# " + title, VisualPrompt: "poster"}, nil
}

func newTestActivities(t *testing.T, gen *stubGenerator) (*Activities, config.Config) {
	t.Helper()
	cfg := config.Config{DataInRoot: t.TempDir(), DataOutRoot: t.TempDir()}
	p := pipeline.New(pipeline.Deps{
		Extractor:   extract.New(nil, 2, nil),
		Generator:   gen,
		OperatorKey: true,
	}, nil)
	return New(cfg, p, nil), cfg
}

func TestStageAndExtract(t *testing.T) {
	a, cfg := newTestActivities(t, &stubGenerator{})
	files := []extract.File{
		{Name: "b.txt", MediaType: "text/plain", Data: []byte(strings.Repeat("second file body ", 5))},
		{Name: "a.txt", MediaType: "text/plain", Data: []byte(strings.Repeat("first file body ", 5))},
	}
	manifest, err := StageJob(cfg.DataInRoot, "job1", files, prompt.DefaultStyle(), pipeline.Meta{Title: "T"})
	require.NoError(t, err)

	out, err := a.ExtractTextActivity(context.Background(), ExtractTextInput{JobID: "job1", ManifestPath: manifest})
	require.NoError(t, err)
	b, err := os.ReadFile(out.TextPath)
	require.NoError(t, err)
	text := string(b)
	require.Less(t, strings.Index(text, "Content from b.txt"), strings.Index(text, "Content from a.txt"))
	require.Equal(t, len([]rune(text)), out.Chars)
}

func TestExtractInsufficientTextIsNonRetryable(t *testing.T) {
	a, cfg := newTestActivities(t, &stubGenerator{})
	manifest, err := StageJob(cfg.DataInRoot, "job2", []extract.File{{Name: "a.txt", MediaType: "text/plain", Data: []byte("tiny")}}, prompt.DefaultStyle(), pipeline.Meta{})
	require.NoError(t, err)

	_, err = a.ExtractTextActivity(context.Background(), ExtractTextInput{JobID: "job2", ManifestPath: manifest})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, KindInsufficientText, appErr.Type())
	require.True(t, appErr.NonRetryable())
}

func TestGenerateUsesOperatorKey(t *testing.T) {
	gen := &stubGenerator{}
	a, cfg := newTestActivities(t, gen)
	textPath := filepath.Join(cfg.DataOutRoot, "job3", "extracted.txt")
	require.NoError(t, util.WriteFileAtomic(textPath, []byte("some text")))

	out, err := a.GenerateStudyKitActivity(context.Background(), GenerateStudyKitInput{JobID: "job3", TextPath: textPath, Style: prompt.DefaultStyle(), Title: "Graphs"})
	require.NoError(t, err)
	require.Equal(t, "# Graphs", out.Kit.NotesMarkdown)
	require.Empty(t, gen.apiKey)
}

func TestGenerateErrorKind(t *testing.T) {
	a, cfg := newTestActivities(t, &stubGenerator{err: util.ErrInvalidQuizJSON})
	textPath := filepath.Join(cfg.DataOutRoot, "job4", "extracted.txt")
	require.NoError(t, util.WriteFileAtomic(textPath, []byte("some text")))

	_, err := a.GenerateStudyKitActivity(context.Background(), GenerateStudyKitInput{JobID: "job4", TextPath: textPath, Style: prompt.DefaultStyle()})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, KindInvalidQuizJSON, appErr.Type())
}

func TestRenderVisualWithoutRendererReturnsNil(t *testing.T) {
	a, _ := newTestActivities(t, &stubGenerator{})
	out, err := a.RenderVisualActivity(context.Background(), RenderVisualInput{Prompt: "p", Title: "t"})
	require.NoError(t, err)
	require.Nil(t, out.VisualURL)
}

func TestWriteJobResult(t *testing.T) {
	a, cfg := newTestActivities(t, &stubGenerator{})
	in := WriteJobResultInput{JobID: "job5", Result: JobResult{JobID: "job5", Status: "failed", ErrorKind: KindEmptyScan, Error: "scan"}}
	require.NoError(t, a.WriteJobResultActivity(context.Background(), in))

	var got JobResult
	require.NoError(t, util.ReadJSON(ResultPath(cfg.DataOutRoot, "job5"), &got))
	require.Equal(t, in.Result, got)
}

func TestErrorKind(t *testing.T) {
	truncated := errors.Join(util.ErrTruncatedResponse, util.ErrMalformedSections)
	require.Equal(t, KindTruncated, ErrorKind(truncated))
	require.Equal(t, KindMalformedSections, ErrorKind(util.ErrMalformedSections))
	require.Equal(t, KindEmptyScan, ErrorKind(&extract.FileError{Name: "x.pdf", Err: util.ErrEmptyScan}))
	require.Equal(t, KindInternal, ErrorKind(errors.New("boom")))
	require.Equal(t, util.ErrAuth, KindError(KindAuth))
	require.Nil(t, KindError(KindInternal))
}
