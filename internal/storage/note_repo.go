package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"studykit/internal/models"
	"studykit/internal/util"
)

const (
	SortRecent  = "recent"
	SortUpvotes = "upvotes"
	SortViews   = "views"

	DefaultListLimit = 20
	MaxListLimit     = 100
	excerptRunes     = 240
)

type NoteInput struct {
	CourseID       string
	ModuleID       string
	CreatorName    string
	Title          string
	Language       string
	Kit            models.StudyKit
	VisualImageURL *string
}

type NoteFilter struct {
	InstitutionID string
	CourseID      string
	Language      string
	Sort          string
	Limit         int
	Offset        int
}

// Normalize clamps paging and maps unknown sorts to recent.
func (f NoteFilter) Normalize() NoteFilter {
	switch f.Sort {
	case SortUpvotes, SortViews:
	default:
		f.Sort = SortRecent
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (f NoteFilter) orderBy() string {
	switch f.Sort {
	case SortUpvotes:
		return "n.upvotes DESC, n.created_at DESC"
	case SortViews:
		return "n.views_count DESC, n.created_at DESC"
	default:
		return "n.created_at DESC"
	}
}

type NoteRepo struct {
	db *DB
}

func NewNoteRepo(db *DB) *NoteRepo {
	return &NoteRepo{db: db}
}

func (r *NoteRepo) Insert(ctx context.Context, in NoteInput) (string, error) {
	quiz, err := json.Marshal(in.Kit.Quiz)
	if err != nil {
		return "", fmt.Errorf("encode quiz: %w", err)
	}
	var id string
	err = r.db.Pool.QueryRow(ctx, `
INSERT INTO notes (course_id, module_id, creator_name, title, language, notes_markdown, qcm_json, visual_prompt, visual_image_url)
VALUES ($1::uuid, NULLIF($2,'')::uuid, $3, $4, $5, $6, $7::jsonb, $8, $9)
RETURNING id::text`,
		in.CourseID, in.ModuleID, in.CreatorName, in.Title, in.Language,
		in.Kit.NotesMarkdown, string(quiz), in.Kit.VisualPrompt, in.VisualImageURL,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert note: %w", err)
	}
	return id, nil
}

func (r *NoteRepo) List(ctx context.Context, f NoteFilter) ([]models.NoteSummary, int, error) {
	f = f.Normalize()
	rows, err := r.db.Pool.Query(ctx, `
SELECT n.id::text, n.course_id::text, c.code, c.name, c.institution_id, n.module_id::text,
       n.creator_name, n.title, n.language, LEFT(n.notes_markdown, 4000), n.visual_image_url,
       n.upvotes, n.downvotes, n.views_count, n.created_at,
       COUNT(*) OVER ()
FROM notes n
JOIN courses c ON c.id = n.course_id
WHERE ($1 = '' OR c.institution_id = $1)
  AND ($2 = '' OR n.course_id::text = $2)
  AND ($3 = '' OR n.language = $3)
ORDER BY `+f.orderBy()+`
LIMIT $4 OFFSET $5`, f.InstitutionID, f.CourseID, f.Language, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := make([]models.NoteSummary, 0)
	total := 0
	for rows.Next() {
		var n models.NoteSummary
		var body string
		if err := rows.Scan(&n.NoteID, &n.CourseID, &n.CourseCode, &n.CourseName, &n.InstitutionID, &n.ModuleID,
			&n.CreatorName, &n.Title, &n.Language, &body, &n.VisualImageURL,
			&n.Upvotes, &n.Downvotes, &n.ViewsCount, &n.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		n.Excerpt = util.Excerpt(body, excerptRunes)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}
	return out, total, nil
}

func (r *NoteRepo) Get(ctx context.Context, noteID string) (models.Note, error) {
	var n models.Note
	var quiz []byte
	err := r.db.Pool.QueryRow(ctx, `
SELECT n.id::text, n.course_id::text, c.code, c.name, c.institution_id, n.module_id::text, m.name,
       n.creator_name, n.title, n.language, n.notes_markdown, n.qcm_json, n.visual_prompt, n.visual_image_url,
       n.upvotes, n.downvotes, n.views_count, n.created_at, n.updated_at
FROM notes n
JOIN courses c ON c.id = n.course_id
LEFT JOIN modules m ON m.id = n.module_id
WHERE n.id::text = $1`, noteID).Scan(
		&n.NoteID, &n.CourseID, &n.CourseCode, &n.CourseName, &n.InstitutionID, &n.ModuleID, &n.ModuleName,
		&n.CreatorName, &n.Title, &n.Language, &n.NotesMarkdown, &quiz, &n.VisualPrompt, &n.VisualImageURL,
		&n.Upvotes, &n.Downvotes, &n.ViewsCount, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return models.Note{}, notFound(err, "note")
	}
	if err := json.Unmarshal(quiz, &n.Quiz); err != nil {
		return models.Note{}, fmt.Errorf("decode note quiz: %w", err)
	}
	return n, nil
}

func (r *NoteRepo) IncrementViews(ctx context.Context, noteID string) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE notes SET views_count = views_count + 1 WHERE id::text = $1`, noteID)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// Delete removes a note and returns its visual URL, if any, for cleanup.
func (r *NoteRepo) Delete(ctx context.Context, noteID string) (*string, error) {
	var visual *string
	err := r.db.Pool.QueryRow(ctx, `DELETE FROM notes WHERE id::text = $1 RETURNING visual_image_url`, noteID).Scan(&visual)
	if err != nil {
		return nil, notFound(err, "note")
	}
	return visual, nil
}

// DeleteAll removes every note and returns the visual URLs that were attached.
func (r *NoteRepo) DeleteAll(ctx context.Context) (int, []string, error) {
	rows, err := r.db.Pool.Query(ctx, `DELETE FROM notes RETURNING visual_image_url`)
	if err != nil {
		return 0, nil, fmt.Errorf("delete notes: %w", err)
	}
	defer rows.Close()

	count := 0
	urls := make([]string, 0)
	for rows.Next() {
		var visual *string
		if err := rows.Scan(&visual); err != nil {
			return 0, nil, fmt.Errorf("scan deleted note: %w", err)
		}
		count++
		if visual != nil && *visual != "" {
			urls = append(urls, *visual)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate deleted notes: %w", err)
	}
	return count, urls, nil
}
