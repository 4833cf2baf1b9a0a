package services

import (
	"context"
	"testing"
	"time"

	"heistctf/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRankReader struct {
	rows      []models.RankRow
	waveRows  map[models.Wave][]models.WaveRankRow
	waveCount map[models.Wave]int
}

func (f *fakeRankReader) RankedUsers(ctx context.Context) ([]models.RankRow, error) {
	return append([]models.RankRow(nil), f.rows...), nil
}

func (f *fakeRankReader) WaveRankRows(ctx context.Context, wave models.Wave) ([]models.WaveRankRow, error) {
	return append([]models.WaveRankRow(nil), f.waveRows[wave]...), nil
}

func (f *fakeRankReader) ActiveWaveChallengeCount(ctx context.Context, wave models.Wave) (int, error) {
	return f.waveCount[wave], nil
}

func (f *fakeRankReader) UserWaveStats(ctx context.Context, userID int) (map[models.Wave]models.WaveStat, error) {
	return map[models.Wave]models.WaveStat{}, nil
}

func (f *fakeRankReader) TeamWaveStats(ctx context.Context, teamID int) (map[models.Wave]models.WaveStat, error) {
	return map[models.Wave]models.WaveStat{}, nil
}

type fakeUserReader struct {
	users map[int]models.User
}

func (f *fakeUserReader) GetByID(ctx context.Context, userID int) (*models.User, error) {
	u := f.users[userID]
	return &u, nil
}

func (f *fakeUserReader) Create(ctx context.Context, req *models.RegisterRequest, hash string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserReader) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUserReader) List(ctx context.Context) ([]models.User, error) { return nil, nil }
func (f *fakeUserReader) Update(ctx context.Context, userID int, update *models.AdminUserUpdate) error {
	return nil
}
func (f *fakeUserReader) SetBlocked(ctx context.Context, userID int, blocked bool) error { return nil }
func (f *fakeUserReader) SetMuted(ctx context.Context, userID int, muted bool) error     { return nil }
func (f *fakeUserReader) SetTeam(ctx context.Context, userID int, teamID *int) error     { return nil }
func (f *fakeUserReader) Delete(ctx context.Context, userID int) error                   { return nil }
func (f *fakeUserReader) StoreRefreshToken(ctx context.Context, userID int, token string, expiresAt time.Time) error {
	return nil
}
func (f *fakeUserReader) GetRefreshToken(ctx context.Context, token string) (int, error) {
	return 0, nil
}
func (f *fakeUserReader) RevokeToken(ctx context.Context, token string) error { return nil }

type fakeTeamReader struct {
	teams []models.TeamWithMembers
}

func (f *fakeTeamReader) ListWithMembers(ctx context.Context) ([]models.TeamWithMembers, error) {
	return append([]models.TeamWithMembers(nil), f.teams...), nil
}

func (f *fakeTeamReader) GetByID(ctx context.Context, teamID int) (*models.TeamWithMembers, error) {
	for i := range f.teams {
		if f.teams[i].ID == teamID {
			return &f.teams[i], nil
		}
	}
	return nil, nil
}

func (f *fakeTeamReader) Create(ctx context.Context, name string) (*models.Team, error) {
	return nil, nil
}
func (f *fakeTeamReader) UpdateStoredTotals(ctx context.Context) error { return nil }
func (f *fakeTeamReader) Delete(ctx context.Context, teamID int) error { return nil }

func rankFixture() (*fakeRankReader, *fakeUserReader, *fakeTeamReader, *RankService) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ranks := &fakeRankReader{
		rows: []models.RankRow{
			{UserID: 1, Username: "tokyo", Points: 500, CreatedAt: base},
			{UserID: 2, Username: "berlin", Points: 800, CreatedAt: base.Add(time.Hour)},
			{UserID: 3, Username: "nairobi", Points: 500, CreatedAt: base.Add(-time.Hour)},
			{UserID: 4, Username: "rio", Points: 100, CreatedAt: base},
		},
		waveRows:  map[models.Wave][]models.WaveRankRow{},
		waveCount: map[models.Wave]int{models.WaveRed: 3},
	}
	users := &fakeUserReader{users: map[int]models.User{
		1: {ID: 1, Username: "tokyo", Points: 500, CreatedAt: base},
		2: {ID: 2, Username: "berlin", Points: 800, CreatedAt: base.Add(time.Hour)},
		3: {ID: 3, Username: "nairobi", Points: 500, CreatedAt: base.Add(-time.Hour)},
		4: {ID: 4, Username: "rio", Points: 100, CreatedAt: base},
	}}
	teams := &fakeTeamReader{}
	return ranks, users, teams, NewRankService(ranks, users, teams)
}

func TestRankUsersOrdering(t *testing.T) {
	_, _, _, svc := rankFixture()

	ranked, err := svc.RankUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	// Points descending; equal points break on earlier registration.
	assert.Equal(t, "berlin", ranked[0].Username)
	assert.Equal(t, "nairobi", ranked[1].Username)
	assert.Equal(t, "tokyo", ranked[2].Username)
	assert.Equal(t, "rio", ranked[3].Username)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestUserRankMatchesBoardPosition(t *testing.T) {
	_, _, _, svc := rankFixture()

	board, err := svc.RankUsers(context.Background())
	require.NoError(t, err)

	for _, entry := range board {
		rank, err := svc.UserRank(context.Background(), entry.UserID)
		require.NoError(t, err)
		assert.Equal(t, entry.Rank, rank, "user %s", entry.Username)
	}
}

func TestUserRankBlockedUserReportsZero(t *testing.T) {
	_, users, _, svc := rankFixture()
	u := users.users[2]
	u.IsBlocked = true
	users.users[2] = u

	// berlin holds the most points, but blocked users are off the board;
	// the direct rank query must agree with RankUsers and report 0.
	rank, err := svc.UserRank(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
}

func TestRankUsersWaveTieBreak(t *testing.T) {
	ranks, _, _, svc := rankFixture()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ranks.waveRows[models.WaveRed] = []models.WaveRankRow{
		{UserID: 1, Username: "tokyo", WavePoints: 300, TotalPoints: 500, CreatedAt: base},
		{UserID: 2, Username: "berlin", WavePoints: 300, TotalPoints: 800, CreatedAt: base},
		{UserID: 3, Username: "nairobi", WavePoints: 400, TotalPoints: 500, CreatedAt: base},
	}

	ranked, err := svc.RankUsersWave(context.Background(), models.WaveRed)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	// Wave points first, then total points on ties.
	assert.Equal(t, "nairobi", ranked[0].Username)
	assert.Equal(t, "berlin", ranked[1].Username)
	assert.Equal(t, "tokyo", ranked[2].Username)
}

func TestRankTeamsSumsMembersLive(t *testing.T) {
	_, _, teams, svc := rankFixture()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	teams.teams = []models.TeamWithMembers{
		{
			Team: models.Team{ID: 1, Name: "Professors", CreatedAt: base},
			Members: []models.TeamMember{
				{ID: 1, Username: "tokyo", Points: 500},
				{ID: 4, Username: "rio", Points: 100},
			},
		},
		{
			Team: models.Team{ID: 2, Name: "Police", CreatedAt: base},
			Members: []models.TeamMember{
				{ID: 2, Username: "berlin", Points: 800},
			},
		},
	}

	ranked, err := svc.RankTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Police", ranked[0].Name)
	assert.Equal(t, 800, ranked[0].TotalPoints)
	assert.Equal(t, 600, ranked[1].TotalPoints)

	// A member point change shows up on the next read with no refresh step.
	teams.teams[0].Members[0].Points = 900
	ranked, err = svc.RankTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Professors", ranked[0].Name)
	assert.Equal(t, 1000, ranked[0].TotalPoints)
}

func TestWaveBoardWithoutChallenges(t *testing.T) {
	_, _, _, svc := rankFixture()

	board, err := svc.WaveBoard(context.Background(), models.WaveBlue)
	require.NoError(t, err)
	assert.Empty(t, board.Players)
	assert.Empty(t, board.Teams)
	assert.Equal(t, "No challenges available for blue wave yet.", board.Message)
}

func TestTopPerformersLimit(t *testing.T) {
	_, _, _, svc := rankFixture()

	board, err := svc.TopPerformers(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, board.Players, 2)
	assert.Equal(t, "berlin", board.Players[0].Username)
	assert.Equal(t, "nairobi", board.Players[1].Username)
}
