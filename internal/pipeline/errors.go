package pipeline

// Persistence stages, in write order.
const (
	StageCourse = "create course"
	StageModule = "create module"
	StageNote   = "store note"
)

// PersistError reports which catalog write failed. Earlier stages of the run
// completed; nothing after Stage was written.
type PersistError struct {
	Stage string
	Err   error
}

func (e *PersistError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
