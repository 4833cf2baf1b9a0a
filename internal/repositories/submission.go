package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"heistctf/internal/apperr"
	"heistctf/internal/models"

	"github.com/jmoiron/sqlx"
)

// SubmissionTx is the row-locked view a single submission transaction works
// against. ChallengeForUpdate and UserForUpdate take exclusive row locks, so
// counter updates are serialized per challenge and per user. Lock order is
// always user first, then challenge.
type SubmissionTx interface {
	UserForUpdate(ctx context.Context, userID int) (*models.User, error)
	ChallengeForUpdate(ctx context.Context, challengeID int) (*models.Challenge, error)
	HasSolved(ctx context.Context, userID, challengeID int) (bool, error)
	CountUserAttempts(ctx context.Context, userID, challengeID int) (int, error)
	InsertSubmission(ctx context.Context, sub *models.Submission) error
	BumpChallengeCounters(ctx context.Context, challengeID int, solved bool) error
	MarkSolved(ctx context.Context, userID, challengeID int) error
	AddUserPoints(ctx context.Context, userID, delta int) error
	HintsForChallenge(ctx context.Context, challengeID int) ([]models.Hint, error)
	HasUnlockedHint(ctx context.Context, userID, hintID int) (bool, error)
	UnlockHint(ctx context.Context, userID, hintID int) error
	DeleteUserSubmissions(ctx context.Context, userID, challengeID int) error
	UnmarkSolved(ctx context.Context, userID, challengeID int) error
	RecountChallenge(ctx context.Context, challengeID int) (attempts, solves int, err error)
}

type SubmissionLedger interface {
	// InTx runs fn inside one transaction; every mutation fn performs
	// commits or rolls back as a unit.
	InTx(ctx context.Context, fn func(tx SubmissionTx) error) error
	UserSubmissions(ctx context.Context, userID, challengeID int) ([]models.Submission, error)
	ChallengeSubmissions(ctx context.Context, challengeID int) ([]models.SubmissionWithUser, error)
}

type submissionLedger struct {
	db *sqlx.DB
}

func NewSubmissionLedger(db *sqlx.DB) SubmissionLedger {
	return &submissionLedger{db: db}
}

func (l *submissionLedger) InTx(ctx context.Context, fn func(tx SubmissionTx) error) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&submissionTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *submissionLedger) UserSubmissions(ctx context.Context, userID, challengeID int) ([]models.Submission, error) {
	query := `SELECT id, user_id, challenge_id, flag, is_correct, ip_address, submitted_at
              FROM submissions
              WHERE user_id = ? AND challenge_id = ?
              ORDER BY submitted_at DESC`

	subs := []models.Submission{}
	if err := l.db.SelectContext(ctx, &subs, query, userID, challengeID); err != nil {
		return nil, fmt.Errorf("failed to get user submissions: %w", err)
	}
	return subs, nil
}

func (l *submissionLedger) ChallengeSubmissions(ctx context.Context, challengeID int) ([]models.SubmissionWithUser, error) {
	query := `SELECT s.id, s.user_id, s.challenge_id, s.flag, s.is_correct, s.ip_address, s.submitted_at,
                     u.username, u.email
              FROM submissions s
              JOIN users u ON u.id = s.user_id
              WHERE s.challenge_id = ?
              ORDER BY s.submitted_at DESC`

	subs := []models.SubmissionWithUser{}
	if err := l.db.SelectContext(ctx, &subs, query, challengeID); err != nil {
		return nil, fmt.Errorf("failed to get challenge submissions: %w", err)
	}
	return subs, nil
}

type submissionTx struct {
	tx *sqlx.Tx
}

func (t *submissionTx) UserForUpdate(ctx context.Context, userID int) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, role, points, is_blocked, is_muted, team_id, created_at
              FROM users WHERE id = ? FOR UPDATE`

	var user models.User
	if err := t.tx.GetContext(ctx, &user, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "user not found: %d", userID)
		}
		return nil, fmt.Errorf("failed to lock user row: %w", err)
	}
	return &user, nil
}

func (t *submissionTx) ChallengeForUpdate(ctx context.Context, challengeID int) (*models.Challenge, error) {
	query := `SELECT id, title, description, category, difficulty, wave, flag, points,
                     dynamic_points, min_points, max_points, max_attempts, penalty_points,
                     attempts, solves, is_active, created_by, created_at, updated_at
              FROM challenges WHERE id = ? FOR UPDATE`

	var ch models.Challenge
	if err := t.tx.GetContext(ctx, &ch, query, challengeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "challenge not found: %d", challengeID)
		}
		return nil, fmt.Errorf("failed to lock challenge row: %w", err)
	}
	return &ch, nil
}

func (t *submissionTx) HasSolved(ctx context.Context, userID, challengeID int) (bool, error) {
	query := `SELECT COUNT(*) FROM user_solved_challenges WHERE user_id = ? AND challenge_id = ?`

	var count int
	if err := t.tx.GetContext(ctx, &count, query, userID, challengeID); err != nil {
		return false, fmt.Errorf("failed to check solved set: %w", err)
	}
	return count > 0, nil
}

func (t *submissionTx) CountUserAttempts(ctx context.Context, userID, challengeID int) (int, error) {
	query := `SELECT COUNT(*) FROM submissions WHERE user_id = ? AND challenge_id = ?`

	var count int
	if err := t.tx.GetContext(ctx, &count, query, userID, challengeID); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

func (t *submissionTx) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	query := `INSERT INTO submissions (user_id, challenge_id, flag, is_correct, ip_address, submitted_at)
              VALUES (?, ?, ?, ?, ?, ?)`

	result, err := t.tx.ExecContext(ctx, query,
		sub.UserID, sub.ChallengeID, sub.Flag, sub.IsCorrect, sub.IPAddress, sub.SubmittedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get submission ID: %w", err)
	}
	sub.ID = id
	return nil
}

func (t *submissionTx) BumpChallengeCounters(ctx context.Context, challengeID int, solved bool) error {
	query := `UPDATE challenges SET attempts = attempts + 1, updated_at = NOW() WHERE id = ?`
	if solved {
		query = `UPDATE challenges SET attempts = attempts + 1, solves = solves + 1, updated_at = NOW() WHERE id = ?`
	}

	if _, err := t.tx.ExecContext(ctx, query, challengeID); err != nil {
		return fmt.Errorf("failed to update challenge counters: %w", err)
	}
	return nil
}

func (t *submissionTx) MarkSolved(ctx context.Context, userID, challengeID int) error {
	// Idempotent set union: a concurrent insert of the same pair is a no-op.
	query := `INSERT IGNORE INTO user_solved_challenges (user_id, challenge_id, solved_at)
              VALUES (?, ?, NOW())`

	if _, err := t.tx.ExecContext(ctx, query, userID, challengeID); err != nil {
		return fmt.Errorf("failed to mark challenge solved: %w", err)
	}
	return nil
}

func (t *submissionTx) AddUserPoints(ctx context.Context, userID, delta int) error {
	// GREATEST floors the balance at zero for penalty deductions.
	query := `UPDATE users SET points = GREATEST(points + ?, 0) WHERE id = ?`

	if _, err := t.tx.ExecContext(ctx, query, delta, userID); err != nil {
		return fmt.Errorf("failed to update user points: %w", err)
	}
	return nil
}

func (t *submissionTx) HintsForChallenge(ctx context.Context, challengeID int) ([]models.Hint, error) {
	query := `SELECT id, challenge_id, content, cost, created_at
              FROM hints WHERE challenge_id = ? ORDER BY id ASC`

	hints := []models.Hint{}
	if err := t.tx.SelectContext(ctx, &hints, query, challengeID); err != nil {
		return nil, fmt.Errorf("failed to get hints: %w", err)
	}
	return hints, nil
}

func (t *submissionTx) HasUnlockedHint(ctx context.Context, userID, hintID int) (bool, error) {
	query := `SELECT COUNT(*) FROM hint_unlocks WHERE user_id = ? AND hint_id = ?`

	var count int
	if err := t.tx.GetContext(ctx, &count, query, userID, hintID); err != nil {
		return false, fmt.Errorf("failed to check hint unlock: %w", err)
	}
	return count > 0, nil
}

func (t *submissionTx) UnlockHint(ctx context.Context, userID, hintID int) error {
	query := `INSERT IGNORE INTO hint_unlocks (user_id, hint_id, unlocked_at) VALUES (?, ?, NOW())`

	if _, err := t.tx.ExecContext(ctx, query, userID, hintID); err != nil {
		return fmt.Errorf("failed to unlock hint: %w", err)
	}
	return nil
}

func (t *submissionTx) DeleteUserSubmissions(ctx context.Context, userID, challengeID int) error {
	query := `DELETE FROM submissions WHERE user_id = ? AND challenge_id = ?`

	if _, err := t.tx.ExecContext(ctx, query, userID, challengeID); err != nil {
		return fmt.Errorf("failed to delete user submissions: %w", err)
	}
	return nil
}

func (t *submissionTx) UnmarkSolved(ctx context.Context, userID, challengeID int) error {
	query := `DELETE FROM user_solved_challenges WHERE user_id = ? AND challenge_id = ?`

	if _, err := t.tx.ExecContext(ctx, query, userID, challengeID); err != nil {
		return fmt.Errorf("failed to remove solved entry: %w", err)
	}
	return nil
}

func (t *submissionTx) RecountChallenge(ctx context.Context, challengeID int) (int, int, error) {
	var attempts int
	if err := t.tx.GetContext(ctx, &attempts,
		`SELECT COUNT(*) FROM submissions WHERE challenge_id = ?`, challengeID); err != nil {
		return 0, 0, fmt.Errorf("failed to recount attempts: %w", err)
	}

	var solves int
	if err := t.tx.GetContext(ctx, &solves,
		`SELECT COUNT(*) FROM user_solved_challenges WHERE challenge_id = ?`, challengeID); err != nil {
		return 0, 0, fmt.Errorf("failed to recount solves: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE challenges SET attempts = ?, solves = ?, updated_at = NOW() WHERE id = ?`,
		attempts, solves, challengeID); err != nil {
		return 0, 0, fmt.Errorf("failed to write recounted counters: %w", err)
	}
	return attempts, solves, nil
}
