package models

import "time"

// RankRow is the raw per-user row the rank aggregator sorts. CreatedAt is
// the tie-break key: earlier registration wins on equal points.
type RankRow struct {
	UserID      int       `db:"id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	Points      int       `db:"points" json:"points"`
	SolvedCount int       `db:"solved_count" json:"solved_count"`
	TeamID      *int      `db:"team_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// WaveRankRow aggregates one user's solved challenges within a single wave.
type WaveRankRow struct {
	UserID      int       `db:"id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	WavePoints  int       `db:"wave_points" json:"wave_points"`
	WaveSolved  int       `db:"wave_solved" json:"solved_wave_challenges"`
	TotalPoints int       `db:"points" json:"total_points"`
	TeamID      *int      `db:"team_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

type RankedUser struct {
	Rank int `json:"rank"`
	RankRow
}

type WaveRankedUser struct {
	Rank int `json:"rank"`
	WaveRankRow
}

type RankedTeam struct {
	Rank        int          `json:"rank"`
	TeamID      int          `json:"team_id"`
	Name        string       `json:"name"`
	TotalPoints int          `json:"total_points"`
	MemberCount int          `json:"member_count"`
	Members     []TeamMember `json:"members"`
}

type WaveTeamMember struct {
	Username   string `json:"username"`
	WavePoints int    `json:"wave_points"`
	WaveSolved int    `json:"solved_wave_challenges"`
}

type WaveRankedTeam struct {
	Rank        int              `json:"rank"`
	TeamID      int              `json:"team_id"`
	Name        string           `json:"name"`
	WavePoints  int              `json:"wave_points"`
	TotalPoints int              `json:"total_points"`
	MemberCount int              `json:"member_count"`
	Members     []WaveTeamMember `json:"members"`
}

type Scoreboard struct {
	Players []RankedUser `json:"players"`
	Teams   []RankedTeam `json:"teams"`
}

type WaveScoreboard struct {
	Wave    Wave             `json:"wave"`
	Players []WaveRankedUser `json:"players"`
	Teams   []WaveRankedTeam `json:"teams"`
	Message string           `json:"message,omitempty"`
}

type WaveStat struct {
	Solved int `json:"solved"`
	Points int `json:"points"`
}

type UserStats struct {
	Username         string            `json:"username"`
	TotalPoints      int               `json:"total_points"`
	SolvedChallenges int               `json:"solved_challenges"`
	Team             *string           `json:"team"`
	WaveStats        map[Wave]WaveStat `json:"wave_stats"`
	JoinDate         time.Time         `json:"join_date"`
	Rank             int               `json:"rank"`
}

type TeamStats struct {
	Name        string            `json:"name"`
	TotalPoints int               `json:"total_points"`
	MemberCount int               `json:"member_count"`
	Members     []TeamMember      `json:"members"`
	WaveStats   map[Wave]WaveStat `json:"wave_stats"`
	CreatedDate time.Time         `json:"created_date"`
	Rank        int               `json:"rank"`
}

// ScoreboardEvent is the invalidation signal pushed to subscribers. It
// carries no standings; clients re-query the rank endpoints.
type ScoreboardEvent struct {
	Type      string    `json:"type"`
	Wave      Wave      `json:"wave,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
