package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"heistctf/internal/models"
	"heistctf/internal/repositories"
)

// RankService derives standings from raw rows on every call. Sort keys:
// overall users by points DESC then createdAt ASC; wave users by wavePoints
// DESC then total points DESC then createdAt ASC; teams by live-summed
// member points DESC then createdAt ASC.
type RankService struct {
	ranks repositories.RankReader
	users repositories.UserRepository
	teams repositories.TeamRepository
}

func NewRankService(ranks repositories.RankReader, users repositories.UserRepository, teams repositories.TeamRepository) *RankService {
	return &RankService{ranks: ranks, users: users, teams: teams}
}

func (s *RankService) RankUsers(ctx context.Context) ([]models.RankedUser, error) {
	rows, err := s.ranks.RankedUsers(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	ranked := make([]models.RankedUser, len(rows))
	for i, row := range rows {
		ranked[i] = models.RankedUser{Rank: i + 1, RankRow: row}
	}
	return ranked, nil
}

func (s *RankService) RankUsersWave(ctx context.Context, wave models.Wave) ([]models.WaveRankedUser, error) {
	rows, err := s.ranks.WaveRankRows(ctx, wave)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WavePoints != rows[j].WavePoints {
			return rows[i].WavePoints > rows[j].WavePoints
		}
		if rows[i].TotalPoints != rows[j].TotalPoints {
			return rows[i].TotalPoints > rows[j].TotalPoints
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	ranked := make([]models.WaveRankedUser, len(rows))
	for i, row := range rows {
		ranked[i] = models.WaveRankedUser{Rank: i + 1, WaveRankRow: row}
	}
	return ranked, nil
}

// UserRank is the position the user holds in RankUsers: users with strictly
// more points, plus users with equal points registered earlier, plus one.
// A blocked user is off the board entirely and reports rank 0.
func (s *RankService) UserRank(ctx context.Context, userID int) (int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.IsBlocked {
		return 0, nil
	}

	rows, err := s.ranks.RankedUsers(ctx)
	if err != nil {
		return 0, err
	}

	rank := 1
	for _, row := range rows {
		if row.UserID == userID {
			continue
		}
		if row.Points > user.Points {
			rank++
		} else if row.Points == user.Points && row.CreatedAt.Before(user.CreatedAt) {
			rank++
		}
	}
	return rank, nil
}

func (s *RankService) RankTeams(ctx context.Context) ([]models.RankedTeam, error) {
	teams, err := s.teams.ListWithMembers(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(teams, func(i, j int) bool {
		pi, pj := teams[i].TotalPoints(), teams[j].TotalPoints()
		if pi != pj {
			return pi > pj
		}
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})

	ranked := make([]models.RankedTeam, len(teams))
	for i, t := range teams {
		ranked[i] = models.RankedTeam{
			Rank:        i + 1,
			TeamID:      t.ID,
			Name:        t.Name,
			TotalPoints: t.TotalPoints(),
			MemberCount: len(t.Members),
			Members:     t.Members,
		}
	}
	return ranked, nil
}

func (s *RankService) RankTeamsWave(ctx context.Context, wave models.Wave) ([]models.WaveRankedTeam, error) {
	teams, err := s.teams.ListWithMembers(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.ranks.WaveRankRows(ctx, wave)
	if err != nil {
		return nil, err
	}

	byUser := make(map[int]models.WaveRankRow, len(rows))
	for _, row := range rows {
		byUser[row.UserID] = row
	}

	ranked := make([]models.WaveRankedTeam, len(teams))
	for i, t := range teams {
		entry := models.WaveRankedTeam{
			TeamID:      t.ID,
			Name:        t.Name,
			TotalPoints: t.TotalPoints(),
			MemberCount: len(t.Members),
			Members:     make([]models.WaveTeamMember, 0, len(t.Members)),
		}
		for _, m := range t.Members {
			row := byUser[m.ID]
			entry.WavePoints += row.WavePoints
			entry.Members = append(entry.Members, models.WaveTeamMember{
				Username:   m.Username,
				WavePoints: row.WavePoints,
				WaveSolved: row.WaveSolved,
			})
		}
		ranked[i] = entry
	}

	created := make(map[int]time.Time, len(teams))
	for _, t := range teams {
		created[t.ID] = t.CreatedAt
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WavePoints != ranked[j].WavePoints {
			return ranked[i].WavePoints > ranked[j].WavePoints
		}
		return created[ranked[i].TeamID].Before(created[ranked[j].TeamID])
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

func (s *RankService) Overall(ctx context.Context) (*models.Scoreboard, error) {
	players, err := s.RankUsers(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.RankTeams(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Scoreboard{Players: players, Teams: teams}, nil
}

func (s *RankService) WaveBoard(ctx context.Context, wave models.Wave) (*models.WaveScoreboard, error) {
	count, err := s.ranks.ActiveWaveChallengeCount(ctx, wave)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &models.WaveScoreboard{
			Wave:    wave,
			Players: []models.WaveRankedUser{},
			Teams:   []models.WaveRankedTeam{},
			Message: fmt.Sprintf("No challenges available for %s wave yet.", wave),
		}, nil
	}

	players, err := s.RankUsersWave(ctx, wave)
	if err != nil {
		return nil, err
	}
	teams, err := s.RankTeamsWave(ctx, wave)
	if err != nil {
		return nil, err
	}
	return &models.WaveScoreboard{Wave: wave, Players: players, Teams: teams}, nil
}

func (s *RankService) UserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	waveStats, err := s.ranks.UserWaveStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	solved := 0
	for _, ws := range waveStats {
		solved += ws.Solved
	}

	rank, err := s.UserRank(ctx, userID)
	if err != nil {
		return nil, err
	}

	var teamName *string
	if user.TeamID != nil {
		team, err := s.teams.GetByID(ctx, *user.TeamID)
		if err == nil {
			teamName = &team.Name
		}
	}

	return &models.UserStats{
		Username:         user.Username,
		TotalPoints:      user.Points,
		SolvedChallenges: solved,
		Team:             teamName,
		WaveStats:        waveStats,
		JoinDate:         user.CreatedAt,
		Rank:             rank,
	}, nil
}

func (s *RankService) TeamStats(ctx context.Context, teamID int) (*models.TeamStats, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	waveStats, err := s.ranks.TeamWaveStats(ctx, teamID)
	if err != nil {
		return nil, err
	}

	ranked, err := s.RankTeams(ctx)
	if err != nil {
		return nil, err
	}
	rank := 0
	for _, rt := range ranked {
		if rt.TeamID == teamID {
			rank = rt.Rank
			break
		}
	}

	return &models.TeamStats{
		Name:        team.Name,
		TotalPoints: team.TotalPoints(),
		MemberCount: len(team.Members),
		Members:     team.Members,
		WaveStats:   waveStats,
		CreatedDate: team.CreatedAt,
		Rank:        rank,
	}, nil
}

func (s *RankService) TopPerformers(ctx context.Context, limit int) (*models.Scoreboard, error) {
	board, err := s.Overall(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		if len(board.Players) > limit {
			board.Players = board.Players[:limit]
		}
		if len(board.Teams) > limit {
			board.Teams = board.Teams[:limit]
		}
	}
	return board, nil
}
