package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"heistctf/internal/apperr"
	"heistctf/internal/models"

	"github.com/jmoiron/sqlx"
)

type ChallengeRepository interface {
	List(ctx context.Context) ([]models.Challenge, error)
	GetByID(ctx context.Context, challengeID int) (*models.Challenge, error)
	Filter(ctx context.Context, f models.ChallengeFilter) ([]models.Challenge, error)
	Create(ctx context.Context, ch *models.Challenge, hints []models.HintInput) error
	Update(ctx context.Context, ch *models.Challenge) error
	Delete(ctx context.Context, challengeID int) error
	BulkSetActive(ctx context.Context, challengeIDs []int, active bool) (int64, error)
	Solvers(ctx context.Context, challengeID int) ([]string, error)
}

type challengeRepository struct {
	db *sqlx.DB
}

func NewChallengeRepository(db *sqlx.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

const challengeColumns = `id, title, description, category, difficulty, wave, flag, points,
    dynamic_points, min_points, max_points, max_attempts, penalty_points,
    attempts, solves, is_active, created_by, created_at, updated_at`

func (r *challengeRepository) List(ctx context.Context) ([]models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges ORDER BY id ASC`

	challenges := []models.Challenge{}
	if err := r.db.SelectContext(ctx, &challenges, query); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

func (r *challengeRepository) GetByID(ctx context.Context, challengeID int) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = ?`

	var ch models.Challenge
	if err := r.db.GetContext(ctx, &ch, query, challengeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "challenge not found: %d", challengeID)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &ch, nil
}

func (r *challengeRepository) Filter(ctx context.Context, f models.ChallengeFilter) ([]models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE 1=1`
	args := []interface{}{}

	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Difficulty != "" {
		query += ` AND difficulty = ?`
		args = append(args, f.Difficulty)
	}
	if f.Wave != "" {
		query += ` AND wave = ?`
		args = append(args, string(f.Wave))
	}
	if f.ActiveOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id ASC`

	challenges := []models.Challenge{}
	if err := r.db.SelectContext(ctx, &challenges, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter challenges: %w", err)
	}
	return challenges, nil
}

func (r *challengeRepository) Create(ctx context.Context, ch *models.Challenge, hints []models.HintInput) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO challenges
	          (title, description, category, difficulty, wave, flag, points,
	           dynamic_points, min_points, max_points, max_attempts, penalty_points,
	           is_active, created_by)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		ch.Title, ch.Description, ch.Category, ch.Difficulty, string(ch.Wave), ch.Flag, ch.Points,
		ch.DynamicPoints, ch.MinPoints, ch.MaxPoints, ch.MaxAttempts, ch.PenaltyPoints,
		ch.IsActive, ch.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get challenge ID: %w", err)
	}
	ch.ID = int(id)

	for _, h := range hints {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hints (challenge_id, content, cost) VALUES (?, ?, ?)`,
			ch.ID, h.Content, h.Cost); err != nil {
			return fmt.Errorf("failed to create hint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit challenge: %w", err)
	}
	return nil
}

func (r *challengeRepository) Update(ctx context.Context, ch *models.Challenge) error {
	query := `UPDATE challenges SET
	          title = ?, description = ?, category = ?, difficulty = ?, wave = ?, flag = ?,
	          points = ?, dynamic_points = ?, min_points = ?, max_points = ?,
	          max_attempts = ?, penalty_points = ?, is_active = ?, updated_at = NOW()
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		ch.Title, ch.Description, ch.Category, ch.Difficulty, string(ch.Wave), ch.Flag,
		ch.Points, ch.DynamicPoints, ch.MinPoints, ch.MaxPoints,
		ch.MaxAttempts, ch.PenaltyPoints, ch.IsActive, ch.ID)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "challenge not found: %d", ch.ID)
	}
	return nil
}

// Delete removes the challenge and its dependent submissions, hints and
// solved-set rows in one transaction. Administrative operation only.
func (r *challengeRepository) Delete(ctx context.Context, challengeID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE hu FROM hint_unlocks hu JOIN hints h ON h.id = hu.hint_id WHERE h.challenge_id = ?`,
		`DELETE FROM hints WHERE challenge_id = ?`,
		`DELETE FROM submissions WHERE challenge_id = ?`,
		`DELETE FROM user_solved_challenges WHERE challenge_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, challengeID); err != nil {
			return fmt.Errorf("failed to delete challenge dependents: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, challengeID)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "challenge not found: %d", challengeID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit challenge delete: %w", err)
	}
	return nil
}

func (r *challengeRepository) BulkSetActive(ctx context.Context, challengeIDs []int, active bool) (int64, error) {
	if len(challengeIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(challengeIDs)), ",")
	query := `UPDATE challenges SET is_active = ?, updated_at = NOW() WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(challengeIDs)+1)
	args = append(args, active)
	for _, id := range challengeIDs {
		args = append(args, id)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update challenge status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

func (r *challengeRepository) Solvers(ctx context.Context, challengeID int) ([]string, error) {
	query := `SELECT u.username
              FROM user_solved_challenges usc
              JOIN users u ON u.id = usc.user_id
              WHERE usc.challenge_id = ?
              ORDER BY usc.solved_at ASC`

	usernames := []string{}
	if err := r.db.SelectContext(ctx, &usernames, query, challengeID); err != nil {
		return nil, fmt.Errorf("failed to get solvers: %w", err)
	}
	return usernames, nil
}
