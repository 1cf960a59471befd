package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.GenerateStudyKitActivity)
	w.RegisterActivity(a.RenderVisualActivity)
	w.RegisterActivity(a.PersistNoteActivity)
	w.RegisterActivity(a.WriteJobResultActivity)
}
