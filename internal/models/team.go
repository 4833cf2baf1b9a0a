package models

import (
	"errors"
	"strings"
	"time"
)

type Team struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type TeamMember struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Points   int    `db:"points" json:"points"`
}

// TeamWithMembers is the read shape used for ranking. Total points are
// always summed live from members, never read from storage.
type TeamWithMembers struct {
	Team
	Members []TeamMember `json:"members"`
}

func (t *TeamWithMembers) TotalPoints() int {
	total := 0
	for _, m := range t.Members {
		total += m.Points
	}
	return total
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

func (r *CreateTeamRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("team name cannot be empty")
	}
	if len(r.Name) > 100 {
		return errors.New("team name must be at most 100 characters")
	}
	return nil
}
