package storage

import (
	"context"
	"fmt"
)

type ModuleRepo struct {
	db *DB
}

func NewModuleRepo(db *DB) *ModuleRepo {
	return &ModuleRepo{db: db}
}

// Create appends a module at the end of the course's ordering.
func (r *ModuleRepo) Create(ctx context.Context, courseID, name string) (string, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO modules (course_id, name, order_index)
VALUES ($1::uuid, $2, (SELECT COALESCE(MAX(order_index) + 1, 0) FROM modules WHERE course_id = $1::uuid))
RETURNING id::text`, courseID, name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert module: %w", err)
	}
	return id, nil
}
