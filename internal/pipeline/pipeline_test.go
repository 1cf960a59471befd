package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studykit/internal/extract"
	"studykit/internal/models"
	"studykit/internal/prompt"
	"studykit/internal/storage"
	"studykit/internal/util"

	"github.com/stretchr/testify/require"
)

const callerKey = "sk-ant-REDACTED"

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractAll(ctx context.Context, files []extract.File) (string, error) {
	return f.text, f.err
}

type fakeGenerator struct {
	kit    models.StudyKit
	err    error
	prompt string
	key    string
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, p, apiKey, title string) (models.StudyKit, error) {
	f.calls++
	f.prompt = p
	f.key = apiKey
	return f.kit, f.err
}

type fakeVisual struct {
	url   string
	err   error
	panic bool
}

func (f *fakeVisual) Render(ctx context.Context, p, title string) (string, error) {
	if f.panic {
		panic("renderer exploded")
	}
	return f.url, f.err
}

type fakeStore struct {
	courseErr, moduleErr, noteErr error
	courses, modules, notes       int
	lastNote                      storage.NoteInput
	missingCourse                 bool
}

func (f *fakeStore) CourseExists(ctx context.Context, courseID string) (bool, error) {
	return !f.missingCourse, nil
}

func (f *fakeStore) FindOrCreateCourse(ctx context.Context, institutionID, code, name string) (string, error) {
	f.courses++
	return "course-1", f.courseErr
}

func (f *fakeStore) CreateModule(ctx context.Context, courseID, name string) (string, error) {
	f.modules++
	return "module-1", f.moduleErr
}

func (f *fakeStore) InsertNote(ctx context.Context, in storage.NoteInput) (string, error) {
	f.notes++
	f.lastNote = in
	return "note-1", f.noteErr
}

func sampleKit() models.StudyKit {
	return models.StudyKit{
		NotesMarkdown: "# Notes",
		Quiz: models.Quiz{Questions: []models.QuizQuestion{{
			ID: 1, Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2,
		}}},
		VisualPrompt: "a poster",
	}
}

func sampleRequest() Request {
	return Request{
		Files:      []extract.File{{Name: "lecture.txt", MediaType: "text/plain", Data: []byte("hello")}},
		Credential: Credential{Key: callerKey, Source: SourceCaller},
		Style:      prompt.DefaultStyle(),
		Meta: Meta{
			InstitutionID: "inst-1",
			CourseCode:    "CS101",
			CourseName:    "Intro to CS",
			ModuleName:    "Week 1",
			CreatorName:   "Sam",
			Title:         "Graphs",
		},
	}
}

type harness struct {
	ext   *fakeExtractor
	gen   *fakeGenerator
	vis   *fakeVisual
	store *fakeStore
	p     *Pipeline
}

func newHarness() *harness {
	h := &harness{
		ext:   &fakeExtractor{text: strings.Repeat("lecture text ", 20)},
		gen:   &fakeGenerator{kit: sampleKit()},
		vis:   &fakeVisual{url: "https://store/visual.png"},
		store: &fakeStore{},
	}
	h.p = New(Deps{Extractor: h.ext, Generator: h.gen, Visual: h.vis, Store: h.store, OperatorKey: true}, nil)
	return h
}

func TestRunStoresEverything(t *testing.T) {
	h := newHarness()
	res, err := h.p.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, "note-1", res.NoteID)
	require.Equal(t, "# Notes", res.NotesMarkdown)
	require.Len(t, res.Quiz.Questions, 1)
	require.NotNil(t, res.VisualURL)
	require.Equal(t, "https://store/visual.png", *res.VisualURL)

	require.Equal(t, callerKey, h.gen.key)
	require.Equal(t, 1, h.store.courses)
	require.Equal(t, 1, h.store.modules)
	require.Equal(t, "course-1", h.store.lastNote.CourseID)
	require.Equal(t, "module-1", h.store.lastNote.ModuleID)
	require.Equal(t, "en", h.store.lastNote.Language)
	require.Equal(t, res.VisualURL, h.store.lastNote.VisualImageURL)
}

func TestRunVisualFailureIsNotFatal(t *testing.T) {
	for name, vis := range map[string]*fakeVisual{
		"error":     {err: errors.New("replicate error 500")},
		"no image":  {err: util.ErrNoImageProduced},
		"quota":     {err: util.ErrQuotaExhausted},
		"empty url": {},
		"panic":     {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			*h.vis = *vis
			res, err := h.p.Run(context.Background(), sampleRequest())
			require.NoError(t, err)
			require.Nil(t, res.VisualURL)
			require.Equal(t, "# Notes", res.NotesMarkdown)
			require.Len(t, res.Quiz.Questions, 1)
			require.Nil(t, h.store.lastNote.VisualImageURL)
			require.Equal(t, 1, h.store.notes)
		})
	}
}

func TestRunWithoutVisualRenderer(t *testing.T) {
	h := newHarness()
	p := New(Deps{Extractor: h.ext, Generator: h.gen, Store: h.store, OperatorKey: true}, nil)
	res, err := p.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Nil(t, res.VisualURL)
}

func TestRunFailsFastBeforePersisting(t *testing.T) {
	t.Run("extraction", func(t *testing.T) {
		h := newHarness()
		h.ext.err = &extract.FileError{Name: "scan.pdf", Err: util.ErrEmptyScan}
		_, err := h.p.Run(context.Background(), sampleRequest())
		require.ErrorIs(t, err, util.ErrEmptyScan)
		require.Contains(t, err.Error(), "scan.pdf")
		require.Zero(t, h.gen.calls)
		require.Zero(t, h.store.notes)
	})
	t.Run("insufficient text", func(t *testing.T) {
		h := newHarness()
		h.ext.text = "\n\n--- Content from a.txt ---\n\nhi"
		_, err := h.p.Run(context.Background(), sampleRequest())
		require.ErrorIs(t, err, util.ErrInsufficientText)
		require.Zero(t, h.gen.calls)
	})
	t.Run("generation", func(t *testing.T) {
		h := newHarness()
		h.gen.err = util.ErrInvalidQuizJSON
		_, err := h.p.Run(context.Background(), sampleRequest())
		require.ErrorIs(t, err, util.ErrInvalidQuizJSON)
		require.Zero(t, h.store.courses)
		require.Zero(t, h.store.notes)
	})
}

func TestPersistErrorsNameTheFailedWrite(t *testing.T) {
	cases := []struct {
		prefix string
		stage  string
		set    func(*fakeStore)
	}{
		{"create course: ", StageCourse, func(s *fakeStore) { s.courseErr = errors.New("unique violation") }},
		{"create module: ", StageModule, func(s *fakeStore) { s.moduleErr = errors.New("fk violation") }},
		{"store note: ", StageNote, func(s *fakeStore) { s.noteErr = errors.New("check violation") }},
	}
	for _, tc := range cases {
		h := newHarness()
		tc.set(h.store)
		_, err := h.p.Run(context.Background(), sampleRequest())
		require.Error(t, err)
		require.True(t, strings.HasPrefix(err.Error(), tc.prefix), err.Error())
		var pe *PersistError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, tc.stage, pe.Stage)
	}
}

func TestPersistRejectsUnknownCourseID(t *testing.T) {
	h := newHarness()
	h.store.missingCourse = true
	req := sampleRequest()
	req.Meta.CourseID = "course-404"
	_, err := h.p.Run(context.Background(), req)
	require.ErrorIs(t, err, util.ErrNotFound)
	require.True(t, strings.HasPrefix(err.Error(), "create course: "), err.Error())
	require.Zero(t, h.store.modules)
	require.Zero(t, h.store.notes)
}

func TestPersistUsesExistingCourseAndModule(t *testing.T) {
	h := newHarness()
	req := sampleRequest()
	req.Meta.CourseID = "course-9"
	req.Meta.ModuleID = "module-9"
	_, err := h.p.Run(context.Background(), req)
	require.NoError(t, err)
	require.Zero(t, h.store.courses)
	require.Zero(t, h.store.modules)
	require.Equal(t, "course-9", h.store.lastNote.CourseID)
	require.Equal(t, "module-9", h.store.lastNote.ModuleID)
}

func TestRunTruncatesLongDocuments(t *testing.T) {
	h := newHarness()
	h.ext.text = strings.Repeat("x", 60000)
	_, err := h.p.Run(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Contains(t, h.gen.prompt, strings.Repeat("x", 50000)+prompt.TruncationMarker)
	require.NotContains(t, h.gen.prompt, strings.Repeat("x", 50001))
}

func TestOperatorCredential(t *testing.T) {
	h := newHarness()
	req := sampleRequest()
	req.Credential = Credential{Source: SourceOperator}
	_, err := h.p.Run(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, h.gen.key)

	noKey := New(Deps{Extractor: h.ext, Generator: h.gen, Store: h.store}, nil)
	_, err = noKey.Run(context.Background(), req)
	require.ErrorIs(t, err, util.ErrAuth)
}

func TestRequestValidate(t *testing.T) {
	cases := map[string]func(*Request){
		"no files":         func(r *Request) { r.Files = nil },
		"empty file":       func(r *Request) { r.Files[0].Data = nil },
		"bad caller key":   func(r *Request) { r.Credential.Key = "hunter2" },
		"both keys":        func(r *Request) { r.Credential.Source = SourceOperator },
		"unknown source":   func(r *Request) { r.Credential.Source = "borrowed" },
		"detail range":     func(r *Request) { r.Style.DetailLevel = 11 },
		"language":         func(r *Request) { r.Style.Language = "de" },
		"no institution":   func(r *Request) { r.Meta.InstitutionID = "" },
		"no creator":       func(r *Request) { r.Meta.CreatorName = " " },
		"no title":         func(r *Request) { r.Meta.Title = "" },
		"no course at all": func(r *Request) { r.Meta.CourseCode = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := sampleRequest()
			mutate(&req)
			require.Error(t, req.Validate())
		})
	}
	require.NoError(t, sampleRequest().Validate())
}
