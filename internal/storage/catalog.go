package storage

import "context"

// Catalog is the write side used by the generation pipeline.
type Catalog struct {
	Courses *CourseRepo
	Modules *ModuleRepo
	Notes   *NoteRepo
}

func NewCatalog(db *DB) *Catalog {
	return &Catalog{
		Courses: NewCourseRepo(db),
		Modules: NewModuleRepo(db),
		Notes:   NewNoteRepo(db),
	}
}

func (c *Catalog) FindOrCreateCourse(ctx context.Context, institutionID, code, name string) (string, error) {
	return c.Courses.FindOrCreate(ctx, institutionID, code, name)
}

func (c *Catalog) CreateModule(ctx context.Context, courseID, name string) (string, error) {
	return c.Modules.Create(ctx, courseID, name)
}

func (c *Catalog) InsertNote(ctx context.Context, in NoteInput) (string, error) {
	return c.Notes.Insert(ctx, in)
}

func (c *Catalog) CourseExists(ctx context.Context, courseID string) (bool, error) {
	return c.Courses.Exists(ctx, courseID)
}
