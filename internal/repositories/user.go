package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"heistctf/internal/apperr"
	"heistctf/internal/models"

	"github.com/jmoiron/sqlx"
)

// TokenCache is the slice of the cache the user repository needs for
// refresh tokens. services.Cache satisfies it.
type TokenCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type UserRepository interface {
	Create(ctx context.Context, req *models.RegisterRequest, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, userID int) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, userID int, update *models.AdminUserUpdate) error
	SetBlocked(ctx context.Context, userID int, blocked bool) error
	SetMuted(ctx context.Context, userID int, muted bool) error
	SetTeam(ctx context.Context, userID int, teamID *int) error
	Delete(ctx context.Context, userID int) error
	StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (int, error)
	RevokeToken(ctx context.Context, token string) error
}

// RankReader feeds the rank aggregator raw, unsorted rows. Sorting and
// tie-breaking happen in the service so the rules live in one place.
type RankReader interface {
	RankedUsers(ctx context.Context) ([]models.RankRow, error)
	WaveRankRows(ctx context.Context, wave models.Wave) ([]models.WaveRankRow, error)
	ActiveWaveChallengeCount(ctx context.Context, wave models.Wave) (int, error)
	UserWaveStats(ctx context.Context, userID int) (map[models.Wave]models.WaveStat, error)
	TeamWaveStats(ctx context.Context, teamID int) (map[models.Wave]models.WaveStat, error)
}

// UserRepo implements both UserRepository and RankReader.
type UserRepo struct {
	db    *sqlx.DB
	cache TokenCache
}

func NewUserRepository(db *sqlx.DB, cache TokenCache) *UserRepo {
	return &UserRepo{db: db, cache: cache}
}

const userColumns = `id, username, email, password_hash, role, points, is_blocked, is_muted, team_id, created_at`

func (r *UserRepo) Create(ctx context.Context, req *models.RegisterRequest, passwordHash string) (*models.User, error) {
	query := `INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, req.Username, req.Email, passwordHash, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	return &models.User{
		ID:       int(id),
		Username: req.Username,
		Email:    req.Email,
		Role:     models.RoleUser,
	}, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "user not found: %d", userID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) Update(ctx context.Context, userID int, update *models.AdminUserUpdate) error {
	query := `UPDATE users SET
	          username = COALESCE(?, username),
	          email = COALESCE(?, email),
	          role = COALESCE(?, role),
	          points = COALESCE(?, points),
	          is_blocked = COALESCE(?, is_blocked),
	          is_muted = COALESCE(?, is_muted)
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		update.Username, update.Email, update.Role, update.Points,
		update.IsBlocked, update.IsMuted, userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return r.requireAffected(result, userID)
}

func (r *UserRepo) SetBlocked(ctx context.Context, userID int, blocked bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_blocked = ? WHERE id = ?`, blocked, userID)
	if err != nil {
		return fmt.Errorf("failed to update blocked flag: %w", err)
	}
	return r.requireAffected(result, userID)
}

func (r *UserRepo) SetMuted(ctx context.Context, userID int, muted bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_muted = ? WHERE id = ?`, muted, userID)
	if err != nil {
		return fmt.Errorf("failed to update muted flag: %w", err)
	}
	return r.requireAffected(result, userID)
}

func (r *UserRepo) SetTeam(ctx context.Context, userID int, teamID *int) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET team_id = ? WHERE id = ?`, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to update team membership: %w", err)
	}
	return r.requireAffected(result, userID)
}

func (r *UserRepo) Delete(ctx context.Context, userID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return r.requireAffected(result, userID)
}

func (r *UserRepo) requireAffected(result sql.Result, userID int) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "user not found: %d", userID)
	}
	return nil
}

func (r *UserRepo) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	ttl := time.Until(expiresAt)

	if ttl <= 0 {
		return fmt.Errorf("token expiration is in the past")
	}

	if err := r.cache.Set(ctx, key, userID, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token in cache: %w", err)
	}
	return nil
}

func (r *UserRepo) GetRefreshToken(ctx context.Context, token string) (int, error) {
	key := fmt.Sprintf("refresh_token:%s", token)
	var userID int

	if err := r.cache.Get(ctx, key, &userID); err != nil {
		return 0, fmt.Errorf("refresh token not found in cache: %w", err)
	}
	return userID, nil
}

func (r *UserRepo) RevokeToken(ctx context.Context, token string) error {
	key := fmt.Sprintf("refresh_token:%s", token)
	if err := r.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to revoke token from cache: %w", err)
	}
	return nil
}

func (r *UserRepo) RankedUsers(ctx context.Context) ([]models.RankRow, error) {
	query := `SELECT u.id, u.username, u.points, u.team_id, u.created_at,
                     COUNT(usc.challenge_id) AS solved_count
              FROM users u
              LEFT JOIN user_solved_challenges usc ON usc.user_id = u.id
              WHERE u.is_blocked = 0
              GROUP BY u.id, u.username, u.points, u.team_id, u.created_at`

	rows := []models.RankRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get rank rows: %w", err)
	}
	return rows, nil
}

func (r *UserRepo) WaveRankRows(ctx context.Context, wave models.Wave) ([]models.WaveRankRow, error) {
	query := `SELECT u.id, u.username, u.points, u.team_id, u.created_at,
                     SUM(c.points) AS wave_points,
                     COUNT(c.id) AS wave_solved
              FROM users u
              JOIN user_solved_challenges usc ON usc.user_id = u.id
              JOIN challenges c ON c.id = usc.challenge_id
              WHERE u.is_blocked = 0 AND c.wave = ? AND c.is_active = 1
              GROUP BY u.id, u.username, u.points, u.team_id, u.created_at`

	rows := []models.WaveRankRow{}
	if err := r.db.SelectContext(ctx, &rows, query, string(wave)); err != nil {
		return nil, fmt.Errorf("failed to get wave rank rows: %w", err)
	}
	return rows, nil
}

func (r *UserRepo) ActiveWaveChallengeCount(ctx context.Context, wave models.Wave) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM challenges WHERE wave = ? AND is_active = 1`
	if err := r.db.GetContext(ctx, &count, query, string(wave)); err != nil {
		return 0, fmt.Errorf("failed to count wave challenges: %w", err)
	}
	return count, nil
}

func (r *UserRepo) UserWaveStats(ctx context.Context, userID int) (map[models.Wave]models.WaveStat, error) {
	query := `SELECT c.wave, COUNT(c.id) AS solved, SUM(c.points) AS points
              FROM user_solved_challenges usc
              JOIN challenges c ON c.id = usc.challenge_id
              WHERE usc.user_id = ?
              GROUP BY c.wave`
	return r.waveStats(ctx, query, userID)
}

func (r *UserRepo) TeamWaveStats(ctx context.Context, teamID int) (map[models.Wave]models.WaveStat, error) {
	query := `SELECT c.wave, COUNT(c.id) AS solved, SUM(c.points) AS points
              FROM users u
              JOIN user_solved_challenges usc ON usc.user_id = u.id
              JOIN challenges c ON c.id = usc.challenge_id
              WHERE u.team_id = ?
              GROUP BY c.wave`
	return r.waveStats(ctx, query, teamID)
}

func (r *UserRepo) waveStats(ctx context.Context, query string, arg interface{}) (map[models.Wave]models.WaveStat, error) {
	var rows []struct {
		Wave   models.Wave `db:"wave"`
		Solved int         `db:"solved"`
		Points int         `db:"points"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("failed to get wave stats: %w", err)
	}

	stats := make(map[models.Wave]models.WaveStat, len(models.Waves()))
	for _, w := range models.Waves() {
		stats[w] = models.WaveStat{}
	}
	for _, row := range rows {
		stats[row.Wave] = models.WaveStat{Solved: row.Solved, Points: row.Points}
	}
	return stats, nil
}
