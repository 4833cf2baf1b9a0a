package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"heistctf/internal/apperr"
	"heistctf/internal/models"

	"github.com/jmoiron/sqlx"
)

type TeamRepository interface {
	Create(ctx context.Context, name string) (*models.Team, error)
	GetByID(ctx context.Context, teamID int) (*models.TeamWithMembers, error)
	ListWithMembers(ctx context.Context) ([]models.TeamWithMembers, error)
	UpdateStoredTotals(ctx context.Context) error
	Delete(ctx context.Context, teamID int) error
}

type teamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, name string) (*models.Team, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO teams (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get team ID: %w", err)
	}

	return &models.Team{ID: int(id), Name: name}, nil
}

func (r *teamRepository) GetByID(ctx context.Context, teamID int) (*models.TeamWithMembers, error) {
	var team models.Team
	query := `SELECT id, name, created_at FROM teams WHERE id = ?`
	if err := r.db.GetContext(ctx, &team, query, teamID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "team not found: %d", teamID)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	members, err := r.members(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &models.TeamWithMembers{Team: team, Members: members}, nil
}

func (r *teamRepository) ListWithMembers(ctx context.Context) ([]models.TeamWithMembers, error) {
	teams := []models.Team{}
	if err := r.db.SelectContext(ctx, &teams, `SELECT id, name, created_at FROM teams`); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	var rows []struct {
		TeamID   int    `db:"team_id"`
		ID       int    `db:"id"`
		Username string `db:"username"`
		Points   int    `db:"points"`
	}
	query := `SELECT team_id, id, username, points FROM users WHERE team_id IS NOT NULL AND is_blocked = 0`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	byTeam := make(map[int][]models.TeamMember)
	for _, row := range rows {
		byTeam[row.TeamID] = append(byTeam[row.TeamID], models.TeamMember{
			ID:       row.ID,
			Username: row.Username,
			Points:   row.Points,
		})
	}

	result := make([]models.TeamWithMembers, 0, len(teams))
	for _, t := range teams {
		result = append(result, models.TeamWithMembers{Team: t, Members: byTeam[t.ID]})
	}
	return result, nil
}

// UpdateStoredTotals refreshes the non-authoritative total_points cache
// column. Ranking never reads it; the snapshot job calls this
// opportunistically.
func (r *teamRepository) UpdateStoredTotals(ctx context.Context) error {
	query := `UPDATE teams t SET t.total_points =
	          (SELECT COALESCE(SUM(u.points), 0) FROM users u WHERE u.team_id = t.id AND u.is_blocked = 0)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to refresh stored team totals: %w", err)
	}
	return nil
}

func (r *teamRepository) Delete(ctx context.Context, teamID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET team_id = NULL WHERE team_id = ?`, teamID); err != nil {
		return fmt.Errorf("failed to detach team members: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "team not found: %d", teamID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit team delete: %w", err)
	}
	return nil
}

func (r *teamRepository) members(ctx context.Context, teamID int) ([]models.TeamMember, error) {
	members := []models.TeamMember{}
	query := `SELECT id, username, points FROM users WHERE team_id = ? AND is_blocked = 0 ORDER BY points DESC`
	if err := r.db.SelectContext(ctx, &members, query, teamID); err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	return members, nil
}
