package models

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryWeb           = "web"
	CategoryCrypto        = "crypto"
	CategoryForensics     = "forensics"
	CategoryMisc          = "misc"
	CategoryPwn           = "pwn"
	CategoryReverse       = "reverse"
	CategorySteganography = "steganography"

	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyExpert = "expert"
)

type Wave string

const (
	WaveRed    Wave = "red"
	WaveBlue   Wave = "blue"
	WavePurple Wave = "purple"
)

func (w Wave) Valid() bool {
	return w == WaveRed || w == WaveBlue || w == WavePurple
}

func Waves() []Wave {
	return []Wave{WaveRed, WaveBlue, WavePurple}
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryWeb, CategoryCrypto, CategoryForensics, CategoryMisc,
		CategoryPwn, CategoryReverse, CategorySteganography:
		return true
	}
	return false
}

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Challenge carries the running attempts/solves counters alongside the
// scoring policy. The flag is never serialized to clients.
type Challenge struct {
	ID            int       `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	Category      string    `db:"category" json:"category"`
	Difficulty    string    `db:"difficulty" json:"difficulty"`
	Wave          Wave      `db:"wave" json:"wave"`
	Flag          string    `db:"flag" json:"-"`
	Points        int       `db:"points" json:"points"`
	DynamicPoints bool      `db:"dynamic_points" json:"dynamic_points"`
	MinPoints     int       `db:"min_points" json:"min_points"`
	MaxPoints     int       `db:"max_points" json:"max_points"`
	MaxAttempts   int       `db:"max_attempts" json:"max_attempts"`
	PenaltyPoints int       `db:"penalty_points" json:"penalty_points"`
	Attempts      int       `db:"attempts" json:"attempts"`
	Solves        int       `db:"solves" json:"solves"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedBy     *int      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type Hint struct {
	ID          int       `db:"id" json:"id"`
	ChallengeID int       `db:"challenge_id" json:"challenge_id"`
	Content     string    `db:"content" json:"-"`
	Cost        int       `db:"cost" json:"cost"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type ChallengeFilter struct {
	Category   string
	Difficulty string
	Wave       Wave
	ActiveOnly bool
}

type ChallengeStats struct {
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Points     int      `json:"points"`
	Solves     int      `json:"solves"`
	Attempts   int      `json:"attempts"`
	SolveRate  float64  `json:"solve_rate"`
	SolvedBy   []string `json:"solved_by"`
}

type HintInput struct {
	Content string `json:"content" binding:"required"`
	Cost    int    `json:"cost"`
}

type CreateChallengeRequest struct {
	Title         string      `json:"title" binding:"required"`
	Description   string      `json:"description" binding:"required"`
	Category      string      `json:"category" binding:"required"`
	Difficulty    string      `json:"difficulty" binding:"required"`
	Wave          Wave        `json:"wave" binding:"required"`
	Flag          string      `json:"flag" binding:"required"`
	Points        int         `json:"points" binding:"required"`
	DynamicPoints bool        `json:"dynamic_points"`
	MinPoints     int         `json:"min_points"`
	MaxPoints     int         `json:"max_points"`
	MaxAttempts   int         `json:"max_attempts"`
	PenaltyPoints int         `json:"penalty_points"`
	IsActive      *bool       `json:"is_active"`
	Hints         []HintInput `json:"hints"`
}

func (r *CreateChallengeRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if !ValidCategory(r.Category) {
		return errors.New("invalid category")
	}
	if !ValidDifficulty(r.Difficulty) {
		return errors.New("invalid difficulty")
	}
	if !r.Wave.Valid() {
		return errors.New("wave must be red, blue or purple")
	}
	if strings.TrimSpace(r.Flag) == "" {
		return errors.New("flag cannot be empty")
	}
	if r.Points <= 0 {
		return errors.New("points must be positive")
	}
	if r.DynamicPoints && r.MinPoints > 0 && r.MaxPoints > 0 && r.MinPoints > r.MaxPoints {
		return errors.New("min_points must not exceed max_points")
	}
	if r.MaxAttempts < 0 || r.PenaltyPoints < 0 {
		return errors.New("max_attempts and penalty_points must not be negative")
	}
	for _, h := range r.Hints {
		if strings.TrimSpace(h.Content) == "" {
			return errors.New("hint content cannot be empty")
		}
		if h.Cost < 0 {
			return errors.New("hint cost must not be negative")
		}
	}
	return nil
}

type BulkStatusRequest struct {
	ChallengeIDs []int `json:"challenge_ids" binding:"required"`
	IsActive     bool  `json:"is_active"`
}
