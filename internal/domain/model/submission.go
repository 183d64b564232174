package model

import "time"

// Submission is an append-only audit row. One row is written per
// SubmitFlag call regardless of outcome; rows are never mutated or
// deleted.
type Submission struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ChallengeID   string    `json:"challenge_id"`
	FlagSubmitted string    `json:"flag_submitted"`
	IsValid       bool      `json:"is_valid"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// SubmissionOutcome is returned to the caller after a flag submission.
type SubmissionOutcome struct {
	Valid        bool `json:"valid"`
	PointsEarned int  `json:"points_earned"`
}
