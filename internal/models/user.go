package models

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Points       int       `db:"points" json:"points"`
	IsBlocked    bool      `db:"is_blocked" json:"is_blocked"`
	IsMuted      bool      `db:"is_muted" json:"is_muted"`
	TeamID       *int      `db:"team_id" json:"team_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username cannot be empty")
	}
	if len(r.Username) < 3 || len(r.Username) > 50 {
		return errors.New("username must be between 3 and 50 characters")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)
	if !emailRegex.MatchString(r.Email) {
		return errors.New("invalid email format")
	}

	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminUserUpdate is the admin-console user edit payload. Nil fields are
// left untouched; Points overrides the user's balance directly.
type AdminUserUpdate struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	Points    *int    `json:"points"`
	IsBlocked *bool   `json:"is_blocked"`
	IsMuted   *bool   `json:"is_muted"`
}

func (u *AdminUserUpdate) Validate() error {
	if u.Role != nil && *u.Role != RoleUser && *u.Role != RoleAdmin {
		return errors.New("role must be user or admin")
	}
	if u.Points != nil && *u.Points < 0 {
		return errors.New("points must not be negative")
	}
	return nil
}
