package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"heistctf/internal/apperr"
	"heistctf/internal/logger"
	"heistctf/internal/models"
	"heistctf/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type pair struct{ userID, otherID int }

// memLedger is an in-memory stand-in for the MySQL-backed ledger. InTx
// holds one mutex for the whole callback, standing in for the row locks
// the real ledger takes, and snapshots the state so a failing fn restores
// it like a rollback.
type memLedger struct {
	mu         sync.Mutex
	users      map[int]models.User
	challenges map[int]models.Challenge
	solved     map[pair]bool
	subs       []models.Submission
	hints      map[int][]models.Hint
	unlocked   map[pair]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		users:      make(map[int]models.User),
		challenges: make(map[int]models.Challenge),
		solved:     make(map[pair]bool),
		hints:      make(map[int][]models.Hint),
		unlocked:   make(map[pair]bool),
	}
}

func (l *memLedger) clone() *memLedger {
	c := newMemLedger()
	for k, v := range l.users {
		c.users[k] = v
	}
	for k, v := range l.challenges {
		c.challenges[k] = v
	}
	for k, v := range l.solved {
		c.solved[k] = v
	}
	for k, v := range l.unlocked {
		c.unlocked[k] = v
	}
	for k, v := range l.hints {
		c.hints[k] = append([]models.Hint(nil), v...)
	}
	c.subs = append([]models.Submission(nil), l.subs...)
	return c
}

func (l *memLedger) restore(from *memLedger) {
	l.users = from.users
	l.challenges = from.challenges
	l.solved = from.solved
	l.subs = from.subs
	l.hints = from.hints
	l.unlocked = from.unlocked
}

func (l *memLedger) InTx(ctx context.Context, fn func(tx repositories.SubmissionTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := l.clone()
	if err := fn(&memTx{l: l}); err != nil {
		l.restore(snapshot)
		return err
	}
	return nil
}

func (l *memLedger) UserSubmissions(ctx context.Context, userID, challengeID int) ([]models.Submission, error) {
	var out []models.Submission
	for _, s := range l.subs {
		if s.UserID == userID && s.ChallengeID == challengeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *memLedger) ChallengeSubmissions(ctx context.Context, challengeID int) ([]models.SubmissionWithUser, error) {
	var out []models.SubmissionWithUser
	for _, s := range l.subs {
		if s.ChallengeID == challengeID {
			out = append(out, models.SubmissionWithUser{Submission: s})
		}
	}
	return out, nil
}

type memTx struct {
	l *memLedger
}

func (t *memTx) UserForUpdate(ctx context.Context, userID int) (*models.User, error) {
	u, ok := t.l.users[userID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found: %d", userID)
	}
	return &u, nil
}

func (t *memTx) ChallengeForUpdate(ctx context.Context, challengeID int) (*models.Challenge, error) {
	ch, ok := t.l.challenges[challengeID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "challenge not found: %d", challengeID)
	}
	return &ch, nil
}

func (t *memTx) HasSolved(ctx context.Context, userID, challengeID int) (bool, error) {
	return t.l.solved[pair{userID, challengeID}], nil
}

func (t *memTx) CountUserAttempts(ctx context.Context, userID, challengeID int) (int, error) {
	count := 0
	for _, s := range t.l.subs {
		if s.UserID == userID && s.ChallengeID == challengeID {
			count++
		}
	}
	return count, nil
}

func (t *memTx) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	sub.ID = int64(len(t.l.subs) + 1)
	t.l.subs = append(t.l.subs, *sub)
	return nil
}

func (t *memTx) BumpChallengeCounters(ctx context.Context, challengeID int, solved bool) error {
	ch := t.l.challenges[challengeID]
	ch.Attempts++
	if solved {
		ch.Solves++
	}
	t.l.challenges[challengeID] = ch
	return nil
}

func (t *memTx) MarkSolved(ctx context.Context, userID, challengeID int) error {
	t.l.solved[pair{userID, challengeID}] = true
	return nil
}

func (t *memTx) AddUserPoints(ctx context.Context, userID, delta int) error {
	u := t.l.users[userID]
	u.Points += delta
	if u.Points < 0 {
		u.Points = 0
	}
	t.l.users[userID] = u
	return nil
}

func (t *memTx) HintsForChallenge(ctx context.Context, challengeID int) ([]models.Hint, error) {
	return t.l.hints[challengeID], nil
}

func (t *memTx) HasUnlockedHint(ctx context.Context, userID, hintID int) (bool, error) {
	return t.l.unlocked[pair{userID, hintID}], nil
}

func (t *memTx) UnlockHint(ctx context.Context, userID, hintID int) error {
	t.l.unlocked[pair{userID, hintID}] = true
	return nil
}

func (t *memTx) DeleteUserSubmissions(ctx context.Context, userID, challengeID int) error {
	kept := t.l.subs[:0]
	for _, s := range t.l.subs {
		if !(s.UserID == userID && s.ChallengeID == challengeID) {
			kept = append(kept, s)
		}
	}
	t.l.subs = kept
	return nil
}

func (t *memTx) UnmarkSolved(ctx context.Context, userID, challengeID int) error {
	delete(t.l.solved, pair{userID, challengeID})
	return nil
}

func (t *memTx) RecountChallenge(ctx context.Context, challengeID int) (int, int, error) {
	attempts := 0
	for _, s := range t.l.subs {
		if s.ChallengeID == challengeID {
			attempts++
		}
	}
	solves := 0
	for p := range t.l.solved {
		if p.otherID == challengeID {
			solves++
		}
	}
	ch := t.l.challenges[challengeID]
	ch.Attempts = attempts
	ch.Solves = solves
	t.l.challenges[challengeID] = ch
	return attempts, solves, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	waves []models.Wave
}

func (n *recordingNotifier) ScoreboardChanged(ctx context.Context, wave models.Wave) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.waves = append(n.waves, wave)
	return nil
}

func newFixture() (*memLedger, *recordingNotifier, *SubmissionService) {
	ledger := newMemLedger()
	ledger.users[1] = models.User{ID: 1, Username: "tokyo", Points: 100}
	ledger.challenges[10] = models.Challenge{
		ID: 10, Title: "Vault Door", Wave: models.WaveRed, Flag: "HEIST{open-sesame}",
		Points: 100, IsActive: true,
	}
	notifier := &recordingNotifier{}
	return ledger, notifier, NewSubmissionService(ledger, notifier)
}

func TestSubmitCorrectFlag(t *testing.T) {
	ledger, notifier, svc := newFixture()

	result, err := svc.Submit(context.Background(), 1, 10, "  HEIST{open-sesame}  ", "10.0.0.1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 100, result.Points)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 200, result.RemainingPoints)

	assert.Equal(t, 200, ledger.users[1].Points)
	assert.True(t, ledger.solved[pair{1, 10}])
	assert.Equal(t, 1, ledger.challenges[10].Attempts)
	assert.Equal(t, 1, ledger.challenges[10].Solves)
	require.Len(t, ledger.subs, 1)
	assert.True(t, ledger.subs[0].IsCorrect)
	assert.Equal(t, "10.0.0.1", ledger.subs[0].IPAddress)

	assert.Equal(t, []models.Wave{models.WaveRed}, notifier.waves)
}

func TestSubmitDynamicAwardUsesPriorCounters(t *testing.T) {
	ledger, _, svc := newFixture()
	ch := ledger.challenges[10]
	ch.DynamicPoints = true
	ch.Attempts = 10
	ch.Solves = 5
	ledger.challenges[10] = ch

	result, err := svc.Submit(context.Background(), 1, 10, "HEIST{open-sesame}", "")
	require.NoError(t, err)

	// base 100 at solve rate 0.5 pays 150; the counters this attempt adds
	// must not feed its own award.
	assert.Equal(t, 150, result.Points)
	assert.Equal(t, 11, ledger.challenges[10].Attempts)
	assert.Equal(t, 6, ledger.challenges[10].Solves)
}

func TestSubmitConcurrentSolvesSerialize(t *testing.T) {
	ledger, notifier, svc := newFixture()
	ch := ledger.challenges[10]
	ch.DynamicPoints = true
	ledger.challenges[10] = ch

	const n = 8
	for i := 2; i <= n; i++ {
		ledger.users[i] = models.User{ID: i, Username: fmt.Sprintf("crew-%d", i), Points: 100}
	}

	awards := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Submit(context.Background(), i+1, 10, "HEIST{open-sesame}", "")
			errs[i] = err
			if err == nil {
				awards[i] = result.Points
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "submission %d", i)
	}

	// No lost counter updates: solves advances by exactly one per solver.
	assert.Equal(t, n, ledger.challenges[10].Attempts)
	assert.Equal(t, n, ledger.challenges[10].Solves)

	// Each award matches the formula at a distinct pre-state, i.e. the
	// outcome of some serial ordering of the n transactions.
	expected := make([]int, n)
	for i := 0; i < n; i++ {
		expected[i] = AwardedPoints(&models.Challenge{
			Points: 100, DynamicPoints: true, Attempts: i, Solves: i,
		})
	}
	sort.Ints(expected)
	sort.Ints(awards)
	assert.Equal(t, expected, awards)

	assert.Len(t, notifier.waves, n)
}

func TestSubmitWrongFlagPenaltyFloorsAtZero(t *testing.T) {
	ledger, notifier, svc := newFixture()
	u := ledger.users[1]
	u.Points = 15
	ledger.users[1] = u
	ch := ledger.challenges[10]
	ch.PenaltyPoints = 20
	ledger.challenges[10] = ch

	result, err := svc.Submit(context.Background(), 1, 10, "HEIST{wrong}", "")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 20, result.PenaltyApplied)
	assert.Equal(t, 0, result.RemainingPoints)
	assert.Equal(t, 0, ledger.users[1].Points)
	assert.Equal(t, 1, ledger.challenges[10].Attempts)
	assert.Equal(t, 0, ledger.challenges[10].Solves)
	assert.Empty(t, notifier.waves)
}

func TestSubmitValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(l *memLedger)
		flag     string
		wantKind apperr.Kind
	}{
		{
			name: "blocked user rejected before anything else",
			mutate: func(l *memLedger) {
				u := l.users[1]
				u.IsBlocked = true
				l.users[1] = u
				ch := l.challenges[10]
				ch.IsActive = false
				l.challenges[10] = ch
			},
			flag:     "HEIST{open-sesame}",
			wantKind: apperr.KindForbidden,
		},
		{
			name: "inactive challenge",
			mutate: func(l *memLedger) {
				ch := l.challenges[10]
				ch.IsActive = false
				l.challenges[10] = ch
			},
			flag:     "HEIST{open-sesame}",
			wantKind: apperr.KindInvalidState,
		},
		{
			name: "already solved",
			mutate: func(l *memLedger) {
				l.solved[pair{1, 10}] = true
			},
			flag:     "HEIST{open-sesame}",
			wantKind: apperr.KindAlreadySolved,
		},
		{
			name:     "blank flag",
			mutate:   func(l *memLedger) {},
			flag:     "   ",
			wantKind: apperr.KindInvalidInput,
		},
		{
			name:     "unknown challenge",
			mutate:   func(l *memLedger) { delete(l.challenges, 10) },
			flag:     "HEIST{open-sesame}",
			wantKind: apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, notifier, svc := newFixture()
			tt.mutate(ledger)
			before := ledger.clone()

			result, err := svc.Submit(context.Background(), 1, 10, tt.flag, "")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)

			// A refused attempt leaves nothing behind.
			assert.Equal(t, before.subs, ledger.subs)
			assert.Equal(t, before.users, ledger.users)
			assert.Equal(t, before.challenges, ledger.challenges)
			assert.Empty(t, notifier.waves)
		})
	}
}

func TestSubmitMaxAttemptsExhausted(t *testing.T) {
	ledger, _, svc := newFixture()
	ch := ledger.challenges[10]
	ch.MaxAttempts = 3
	ledger.challenges[10] = ch

	for i := 0; i < 3; i++ {
		result, err := svc.Submit(context.Background(), 1, 10, "HEIST{nope}", "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, i+1, result.Attempts)
	}

	_, err := svc.Submit(context.Background(), 1, 10, "HEIST{open-sesame}", "")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAttemptsExhausted))
	assert.Len(t, ledger.subs, 3)
}

func TestUnlockHint(t *testing.T) {
	ledger, _, svc := newFixture()
	ledger.hints[10] = []models.Hint{
		{ID: 1, ChallengeID: 10, Content: "Look at the hinges", Cost: 30},
		{ID: 2, ChallengeID: 10, Content: "The code is on the wall", Cost: 500},
	}

	result, err := svc.UnlockHint(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "Look at the hinges", result.Content)
	assert.Equal(t, 30, result.PointsDeducted)
	assert.False(t, result.AlreadyUnlocked)
	assert.Equal(t, 70, ledger.users[1].Points)

	// Repeat unlock is free.
	result, err = svc.UnlockHint(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.True(t, result.AlreadyUnlocked)
	assert.Equal(t, 0, result.PointsDeducted)
	assert.Equal(t, 70, ledger.users[1].Points)

	_, err = svc.UnlockHint(context.Background(), 1, 10, 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientFunds))
	assert.Equal(t, 70, ledger.users[1].Points)

	_, err = svc.UnlockHint(context.Background(), 1, 10, 5)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestResetAttempts(t *testing.T) {
	ledger, _, svc := newFixture()

	_, err := svc.Submit(context.Background(), 1, 10, "HEIST{nope}", "")
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), 1, 10, "HEIST{open-sesame}", "")
	require.NoError(t, err)
	require.True(t, ledger.solved[pair{1, 10}])

	remaining, err := svc.ResetAttempts(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, remaining)
	assert.Empty(t, ledger.subs)
	assert.False(t, ledger.solved[pair{1, 10}])
	assert.Equal(t, 0, ledger.challenges[10].Attempts)
	assert.Equal(t, 0, ledger.challenges[10].Solves)

	// The slate is clean: the challenge can be solved again.
	result, err := svc.Submit(context.Background(), 1, 10, "HEIST{open-sesame}", "")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestHistory(t *testing.T) {
	ledger, _, svc := newFixture()
	ch := ledger.challenges[10]
	ch.MaxAttempts = 5
	ledger.challenges[10] = ch

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(context.Background(), 1, 10, "HEIST{nope}", "")
		require.NoError(t, err)
	}

	capped := ledger.challenges[10]
	history, err := svc.History(context.Background(), 1, &capped)
	require.NoError(t, err)
	assert.Equal(t, 2, history.AttemptsUsed)
	assert.Equal(t, "3", history.AttemptsRemaining)

	capped.MaxAttempts = 0
	history, err = svc.History(context.Background(), 1, &capped)
	require.NoError(t, err)
	assert.Equal(t, "unlimited", history.AttemptsRemaining)
}
