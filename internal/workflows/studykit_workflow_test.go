package workflows

import (
	"context"
	"errors"
	"testing"

	"studykit/internal/activities"
	"studykit/internal/models"
	"studykit/internal/pipeline"
	"studykit/internal/prompt"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerAll(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterWorkflow(StudyKitWorkflow)
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.ExtractTextInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "GenerateStudyKitActivity", func(context.Context, activities.GenerateStudyKitInput) (activities.GenerateStudyKitOutput, error) {
		return activities.GenerateStudyKitOutput{}, nil
	})
	registerActivityName(env, "RenderVisualActivity", func(context.Context, activities.RenderVisualInput) (activities.RenderVisualOutput, error) {
		return activities.RenderVisualOutput{}, nil
	})
	registerActivityName(env, "PersistNoteActivity", func(context.Context, activities.PersistNoteInput) (activities.PersistNoteOutput, error) {
		return activities.PersistNoteOutput{}, nil
	})
	registerActivityName(env, "WriteJobResultActivity", func(context.Context, activities.WriteJobResultInput) error { return nil })
}

func testInput() StudyKitInput {
	return StudyKitInput{
		JobID:        "job1",
		ManifestPath: "/tmp/in/job1/manifest.json",
		Style:        prompt.DefaultStyle(),
		Meta:         pipeline.Meta{InstitutionID: "inst", CourseCode: "CS1", CourseName: "CS", CreatorName: "Sam", Title: "Graphs"},
	}
}

func testKit() models.StudyKit {
	return models.StudyKit{
		NotesMarkdown: "# Graphs",
		Quiz:          models.Quiz{Questions: []models.QuizQuestion{{ID: 1, Question: "q", Options: []string{"a", "b", "c", "d"}}}},
		VisualPrompt:  "poster",
	}
}

func TestStudyKitWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerAll(env)

	visual := "https://store/visual.png"
	var written activities.WriteJobResultInput
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.ExtractTextInput{JobID: "job1", ManifestPath: "/tmp/in/job1/manifest.json"}).Return(activities.ExtractTextOutput{TextPath: "/tmp/out/job1/extracted.txt", Chars: 500}, nil)
	env.OnActivity("GenerateStudyKitActivity", mock.Anything, activities.GenerateStudyKitInput{JobID: "job1", TextPath: "/tmp/out/job1/extracted.txt", Style: prompt.DefaultStyle(), Title: "Graphs"}).Return(activities.GenerateStudyKitOutput{Kit: testKit()}, nil)
	env.OnActivity("RenderVisualActivity", mock.Anything, activities.RenderVisualInput{Prompt: "poster", Title: "Graphs"}).Return(activities.RenderVisualOutput{VisualURL: &visual}, nil)
	env.OnActivity("PersistNoteActivity", mock.Anything, mock.Anything).Return(activities.PersistNoteOutput{NoteID: "note-1"}, nil)
	env.OnActivity("WriteJobResultActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.WriteJobResultInput) error {
		written = in
		return nil
	})

	env.ExecuteWorkflow(StudyKitWorkflow, testInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusSucceeded, out)
	require.Equal(t, StatusSucceeded, written.Result.Status)
	require.NotNil(t, written.Result.Result)
	require.Equal(t, "note-1", written.Result.Result.NoteID)
	require.Equal(t, visual, *written.Result.Result.VisualURL)

	res, err := env.QueryWorkflow(QueryGetJobStatus)
	require.NoError(t, err)
	var status JobStatus
	require.NoError(t, res.Get(&status))
	require.Equal(t, "note-1", status.NoteID)
	require.Equal(t, "done", status.Steps["persist"])
}

func TestStudyKitWorkflowVisualFailureStillPersists(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerAll(env)

	var persisted activities.PersistNoteInput
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{TextPath: "/tmp/t.txt"}, nil)
	env.OnActivity("GenerateStudyKitActivity", mock.Anything, mock.Anything).Return(activities.GenerateStudyKitOutput{Kit: testKit()}, nil)
	env.OnActivity("RenderVisualActivity", mock.Anything, mock.Anything).Return(activities.RenderVisualOutput{}, errors.New("worker lost"))
	env.OnActivity("PersistNoteActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.PersistNoteInput) (activities.PersistNoteOutput, error) {
		persisted = in
		return activities.PersistNoteOutput{NoteID: "note-2"}, nil
	})
	env.OnActivity("WriteJobResultActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(StudyKitWorkflow, testInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusSucceeded, out)
	require.Nil(t, persisted.VisualURL)
	require.Equal(t, "# Graphs", persisted.Kit.NotesMarkdown)
}

func TestStudyKitWorkflowGenerationFailureRecordsKind(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerAll(env)

	var written activities.WriteJobResultInput
	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{TextPath: "/tmp/t.txt"}, nil)
	env.OnActivity("GenerateStudyKitActivity", mock.Anything, mock.Anything).Return(activities.GenerateStudyKitOutput{},
		temporal.NewNonRetryableApplicationError("Failed to generate complete study materials. Missing: QCM.", activities.KindMalformedSections, nil)).Once()
	env.OnActivity("WriteJobResultActivity", mock.Anything, mock.Anything).Return(func(_ context.Context, in activities.WriteJobResultInput) error {
		written = in
		return nil
	})

	env.ExecuteWorkflow(StudyKitWorkflow, testInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, StatusFailed, out)
	require.Equal(t, activities.KindMalformedSections, written.Result.ErrorKind)
	require.Contains(t, written.Result.Error, "Missing: QCM.")
	require.Nil(t, written.Result.Result)
	env.AssertNotCalled(t, "PersistNoteActivity", mock.Anything, mock.Anything)
}

func TestStudyKitWorkflowExtractionFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	registerAll(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).Return(activities.ExtractTextOutput{},
		temporal.NewNonRetryableApplicationError("this PDF appears to be a scanned document", activities.KindEmptyScan, nil))
	env.OnActivity("WriteJobResultActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(StudyKitWorkflow, testInput())
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	res, err := env.QueryWorkflow(QueryGetJobStatus)
	require.NoError(t, err)
	var status JobStatus
	require.NoError(t, res.Get(&status))
	require.Equal(t, StatusFailed, status.Status)
	require.Equal(t, activities.KindEmptyScan, status.FailKind)
	require.Equal(t, StatusFailed, status.Steps["extract_text"])
	env.AssertNotCalled(t, "GenerateStudyKitActivity", mock.Anything, mock.Anything)
}

func TestWorkflowID(t *testing.T) {
	require.Equal(t, "studykit-abc", WorkflowID("abc"))
}
