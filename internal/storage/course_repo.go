package storage

import (
	"context"
	"fmt"

	"studykit/internal/models"
)

type CourseRepo struct {
	db *DB
}

func NewCourseRepo(db *DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// FindOrCreate returns the course with this institution and code, creating it
// when absent. Concurrent callers converge on one row.
func (r *CourseRepo) FindOrCreate(ctx context.Context, institutionID, code, name string) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO courses (institution_id, code, name)
VALUES ($1, $2, $3)
ON CONFLICT (institution_id, code) DO UPDATE SET code = EXCLUDED.code
RETURNING id::text`, institutionID, code, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert course: %w", err)
	}
	return id, nil
}

func (r *CourseRepo) Create(ctx context.Context, c models.Course) (models.Course, error) {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO courses (institution_id, code, name, description)
VALUES ($1, $2, $3, $4)
RETURNING id::text, created_at`, c.InstitutionID, c.Code, c.Name, c.Description).Scan(&c.CourseID, &c.CreatedAt)
	if err != nil {
		return models.Course{}, fmt.Errorf("insert course: %w", err)
	}
	return c, nil
}

func (r *CourseRepo) Exists(ctx context.Context, courseID string) (bool, error) {
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM courses WHERE id::text = $1)`, courseID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check course: %w", err)
	}
	return ok, nil
}

func (r *CourseRepo) List(ctx context.Context, institutionID string) ([]models.Course, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT c.id::text, c.institution_id, c.code, c.name, c.description, c.created_at,
       (SELECT COUNT(*) FROM notes n WHERE n.course_id = c.id)::int
FROM courses c
WHERE ($1 = '' OR c.institution_id = $1)
ORDER BY c.name`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	out := make([]models.Course, 0)
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.CourseID, &c.InstitutionID, &c.Code, &c.Name, &c.Description, &c.CreatedAt, &c.NotesCount); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}
	return out, nil
}
