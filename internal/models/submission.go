package models

import "time"

// Submission is one ledger entry per flag attempt. Rows are append-only;
// the only delete path is the admin reset-attempts operation.
type Submission struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	ChallengeID int       `db:"challenge_id" json:"challenge_id"`
	Flag        string    `db:"flag" json:"flag"`
	IsCorrect   bool      `db:"is_correct" json:"is_correct"`
	IPAddress   string    `db:"ip_address" json:"ip_address,omitempty"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}

type SubmissionWithUser struct {
	Submission
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
}

type SubmitRequest struct {
	Flag string `json:"flag" binding:"required"`
}

// SubmitResult is returned for every validated attempt, correct or not.
// A wrong flag is a normal outcome, not an error.
type SubmitResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	Points          int    `json:"points,omitempty"`
	Attempts        int    `json:"attempts"`
	MaxAttempts     int    `json:"max_attempts,omitempty"`
	PenaltyApplied  int    `json:"penalty_applied,omitempty"`
	RemainingPoints int    `json:"remaining_points,omitempty"`
}

type HintResult struct {
	Content         string `json:"hint"`
	AlreadyUnlocked bool   `json:"already_unlocked,omitempty"`
	PointsDeducted  int    `json:"points_deducted"`
}

type SubmissionHistory struct {
	ChallengeTitle    string       `json:"challenge_title"`
	MaxAttempts       int          `json:"max_attempts"`
	PenaltyPoints     int          `json:"penalty_points"`
	Submissions       []Submission `json:"submissions"`
	AttemptsUsed      int          `json:"attempts_used"`
	AttemptsRemaining string       `json:"attempts_remaining"`
}
