package storage

import (
	"context"
	"fmt"

	"studykit/internal/models"
)

type VoteRepo struct {
	db *DB
}

func NewVoteRepo(db *DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Cast records voter's vote on a note. A first vote increments one counter, a
// changed vote moves one count across, and a repeated vote changes nothing.
// Counter updates happen in the same transaction as the vote row.
func (r *VoteRepo) Cast(ctx context.Context, noteID, voter, voteType string) (models.VoteCounts, error) {
	if voteType != models.VoteUp && voteType != models.VoteDown {
		return models.VoteCounts{}, fmt.Errorf("invalid vote type %q", voteType)
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return models.VoteCounts{}, fmt.Errorf("begin vote: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM notes WHERE id::text = $1 FOR UPDATE`, noteID).Scan(&locked); err != nil {
		return models.VoteCounts{}, notFound(err, "note")
	}

	var previous string
	err = tx.QueryRow(ctx, `
SELECT vote_type FROM votes WHERE note_id::text = $1 AND user_identifier = $2`, noteID, voter).Scan(&previous)
	switch {
	case err == nil && previous == voteType:
	case err == nil:
		if _, err := tx.Exec(ctx, `UPDATE votes SET vote_type = $3 WHERE note_id::text = $1 AND user_identifier = $2`, noteID, voter, voteType); err != nil {
			return models.VoteCounts{}, fmt.Errorf("update vote: %w", err)
		}
		delta := 1
		if voteType == models.VoteDown {
			delta = -1
		}
		if _, err := tx.Exec(ctx, `
UPDATE notes SET upvotes = GREATEST(upvotes + $2, 0), downvotes = GREATEST(downvotes - $2, 0), updated_at = NOW()
WHERE id::text = $1`, noteID, delta); err != nil {
			return models.VoteCounts{}, fmt.Errorf("move vote count: %w", err)
		}
	case isNoRows(err):
		if _, err := tx.Exec(ctx, `INSERT INTO votes (note_id, user_identifier, vote_type) VALUES ($1::uuid, $2, $3)`, noteID, voter, voteType); err != nil {
			return models.VoteCounts{}, fmt.Errorf("insert vote: %w", err)
		}
		col := "upvotes"
		if voteType == models.VoteDown {
			col = "downvotes"
		}
		if _, err := tx.Exec(ctx, `UPDATE notes SET `+col+` = `+col+` + 1, updated_at = NOW() WHERE id::text = $1`, noteID); err != nil {
			return models.VoteCounts{}, fmt.Errorf("increment vote count: %w", err)
		}
	default:
		return models.VoteCounts{}, fmt.Errorf("get vote: %w", err)
	}

	var counts models.VoteCounts
	if err := tx.QueryRow(ctx, `SELECT upvotes, downvotes FROM notes WHERE id::text = $1`, noteID).Scan(&counts.Upvotes, &counts.Downvotes); err != nil {
		return models.VoteCounts{}, fmt.Errorf("read vote counts: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.VoteCounts{}, fmt.Errorf("commit vote: %w", err)
	}
	return counts, nil
}
