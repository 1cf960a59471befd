package workflows

import (
	"errors"
	"time"

	"studykit/internal/activities"
	"studykit/internal/pipeline"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetJobStatus = "GetJobStatus"

	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"

	stepExtract  = "extract_text"
	stepGenerate = "generate"
	stepVisual   = "render_visual"
	stepPersist  = "persist"
	stepResult   = "write_result"
)

// WorkflowID is the Temporal workflow id for a job.
func WorkflowID(jobID string) string {
	return "studykit-" + jobID
}

// StudyKitWorkflow runs one staged generation request. Stage failures end the
// job as "failed" with the reason recorded; the workflow itself only errors on
// infrastructure problems.
func StudyKitWorkflow(ctx workflow.Context, input StudyKitInput) (string, error) {
	status := JobStatus{
		JobID:       input.JobID,
		CurrentStep: "init",
		Status:      StatusProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetJobStatus, func() (JobStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	retrying := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	})
	// Generation and persistence run at most once.
	once := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 6 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	fail := func(err error) (string, error) {
		status.Status = StatusFailed
		status.Steps[status.CurrentStep] = StatusFailed
		status.FailKind, status.FailReason = describe(err)
		writeResult(retrying, &status, activities.JobResult{
			JobID:     input.JobID,
			Status:    StatusFailed,
			ErrorKind: status.FailKind,
			Error:     status.FailReason,
		})
		status.CurrentStep = "done"
		return status.Status, nil
	}

	begin(&status, stepExtract)
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(retrying, "ExtractTextActivity", activities.ExtractTextInput{JobID: input.JobID, ManifestPath: input.ManifestPath}).Get(ctx, &textOut); err != nil {
		return fail(err)
	}
	status.Steps[stepExtract] = "done"

	begin(&status, stepGenerate)
	var genOut activities.GenerateStudyKitOutput
	if err := workflow.ExecuteActivity(once, "GenerateStudyKitActivity", activities.GenerateStudyKitInput{
		JobID:    input.JobID,
		TextPath: textOut.TextPath,
		Style:    input.Style,
		Title:    input.Meta.Title,
	}).Get(ctx, &genOut); err != nil {
		return fail(err)
	}
	status.Steps[stepGenerate] = "done"

	begin(&status, stepVisual)
	var visOut activities.RenderVisualOutput
	if err := workflow.ExecuteActivity(retrying, "RenderVisualActivity", activities.RenderVisualInput{Prompt: genOut.Kit.VisualPrompt, Title: input.Meta.Title}).Get(ctx, &visOut); err != nil {
		workflow.GetLogger(ctx).Warn("visual activity failed, continuing without image", "error", err)
		visOut.VisualURL = nil
		status.Steps[stepVisual] = "skipped"
	} else {
		status.Steps[stepVisual] = "done"
	}
	status.VisualURL = visOut.VisualURL

	begin(&status, stepPersist)
	var persistOut activities.PersistNoteOutput
	if err := workflow.ExecuteActivity(once, "PersistNoteActivity", activities.PersistNoteInput{
		Meta:      input.Meta,
		Language:  string(input.Style.Language),
		Kit:       genOut.Kit,
		VisualURL: visOut.VisualURL,
	}).Get(ctx, &persistOut); err != nil {
		return fail(err)
	}
	status.Steps[stepPersist] = "done"
	status.NoteID = persistOut.NoteID

	status.Status = StatusSucceeded
	writeResult(retrying, &status, activities.JobResult{
		JobID:  input.JobID,
		Status: StatusSucceeded,
		Result: &pipeline.Result{
			NoteID:        persistOut.NoteID,
			NotesMarkdown: genOut.Kit.NotesMarkdown,
			Quiz:          genOut.Kit.Quiz,
			VisualURL:     visOut.VisualURL,
		},
	})
	status.CurrentStep = "done"
	return status.Status, nil
}

func begin(status *JobStatus, step string) {
	status.CurrentStep = step
	status.Steps[step] = StatusProcessing
}

func writeResult(ctx workflow.Context, status *JobStatus, res activities.JobResult) {
	status.CurrentStep = stepResult
	if err := workflow.ExecuteActivity(ctx, "WriteJobResultActivity", activities.WriteJobResultInput{JobID: res.JobID, Result: res}).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("write job result failed", "job_id", res.JobID, "error", err)
		status.Steps[stepResult] = StatusFailed
		return
	}
	status.Steps[stepResult] = "done"
}

// describe extracts the error kind and message set by the activity.
func describe(err error) (string, string) {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		kind := appErr.Type()
		if activities.KindError(kind) == nil {
			kind = activities.KindInternal
		}
		return kind, appErr.Message()
	}
	return activities.KindInternal, err.Error()
}
