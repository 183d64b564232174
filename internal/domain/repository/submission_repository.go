package repository

import (
	"context"
	"database/sql"
	"fmt"

	"hackastrophe/internal/domain/model"
)

// SubmissionRepository is an append-only audit log; rows are never
// updated or deleted.
type SubmissionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	ListByUserAndChallenge(ctx context.Context, userID, challengeID string) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) Create(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, challenge_id, flag_submitted, is_valid)
	          VALUES ($1, $2, $3, $4, $5)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ChallengeID, sub.FlagSubmitted, sub.IsValid)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ChallengeID, sub.FlagSubmitted, sub.IsValid)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) ListByUserAndChallenge(ctx context.Context, userID, challengeID string) ([]model.Submission, error) {
	query := `SELECT id, user_id, challenge_id, flag_submitted, is_valid, submitted_at
	          FROM submissions
	          WHERE user_id = $1 AND challenge_id = $2
	          ORDER BY submitted_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, challengeID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndChallenge: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ChallengeID, &s.FlagSubmitted, &s.IsValid, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByUserAndChallenge scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
