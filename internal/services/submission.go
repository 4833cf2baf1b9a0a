package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heistctf/internal/apperr"
	"heistctf/internal/logger"
	"heistctf/internal/models"
	"heistctf/internal/repositories"

	"go.uber.org/zap"
)

// SubmissionService orchestrates one flag attempt: validation, the ledger
// append, counter updates and the point award, all inside one transaction.
type SubmissionService struct {
	ledger   repositories.SubmissionLedger
	notifier ScoreboardNotifier
}

func NewSubmissionService(ledger repositories.SubmissionLedger, notifier ScoreboardNotifier) *SubmissionService {
	return &SubmissionService{ledger: ledger, notifier: notifier}
}

// Submit validates and records one attempt. Validation failures return an
// apperr kind and leave no state behind; a wrong flag is a normal result.
// Flag comparison is exact string equality after trimming whitespace.
func (s *SubmissionService) Submit(ctx context.Context, userID, challengeID int, rawFlag, sourceAddr string) (*models.SubmitResult, error) {
	var result models.SubmitResult
	var solvedWave models.Wave

	err := s.ledger.InTx(ctx, func(tx repositories.SubmissionTx) error {
		user, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsBlocked {
			return apperr.New(apperr.KindForbidden, "your account is blocked, contact an administrator")
		}

		ch, err := tx.ChallengeForUpdate(ctx, challengeID)
		if err != nil {
			return err
		}
		if !ch.IsActive {
			return apperr.New(apperr.KindInvalidState, "this challenge is not currently active")
		}

		solved, err := tx.HasSolved(ctx, userID, challengeID)
		if err != nil {
			return err
		}
		if solved {
			return apperr.New(apperr.KindAlreadySolved, "you have already solved this challenge")
		}

		priorAttempts, err := tx.CountUserAttempts(ctx, userID, challengeID)
		if err != nil {
			return err
		}
		if ch.MaxAttempts > 0 && priorAttempts >= ch.MaxAttempts {
			return apperr.New(apperr.KindAttemptsExhausted,
				"maximum attempts (%d) reached for this challenge", ch.MaxAttempts)
		}

		flag := strings.TrimSpace(rawFlag)
		if flag == "" {
			return apperr.New(apperr.KindInvalidInput, "invalid flag format")
		}

		correct := flag == ch.Flag

		sub := &models.Submission{
			UserID:      userID,
			ChallengeID: challengeID,
			Flag:        flag,
			IsCorrect:   correct,
			IPAddress:   sourceAddr,
			SubmittedAt: time.Now(),
		}
		if err := tx.InsertSubmission(ctx, sub); err != nil {
			return err
		}
		if err := tx.BumpChallengeCounters(ctx, challengeID, correct); err != nil {
			return err
		}

		if correct {
			if err := tx.MarkSolved(ctx, userID, challengeID); err != nil {
				return err
			}

			// ch still holds the counters from before this attempt, which
			// is exactly what the dynamic formula expects.
			awarded := AwardedPoints(ch)
			if err := tx.AddUserPoints(ctx, userID, awarded); err != nil {
				return err
			}

			solvedWave = ch.Wave
			result = models.SubmitResult{
				Success:         true,
				Message:         "Congratulations! Flag accepted.",
				Points:          awarded,
				Attempts:        priorAttempts + 1,
				RemainingPoints: user.Points + awarded,
			}
			return nil
		}

		penalty := Penalty(ch)
		if penalty > 0 {
			if err := tx.AddUserPoints(ctx, userID, -penalty); err != nil {
				return err
			}
		}

		remaining := user.Points - penalty
		if remaining < 0 {
			remaining = 0
		}
		result = models.SubmitResult{
			Success:         false,
			Message:         "Incorrect flag.",
			Attempts:        priorAttempts + 1,
			MaxAttempts:     ch.MaxAttempts,
			PenaltyApplied:  penalty,
			RemainingPoints: remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Success {
		// Best-effort nudge; standings are correct regardless.
		if err := s.notifier.ScoreboardChanged(ctx, solvedWave); err != nil {
			logger.Log.Warn("Failed to publish scoreboard invalidation",
				zap.Int("challenge_id", challengeID),
				zap.String("wave", string(solvedWave)),
				zap.Error(err))
		}
	}

	return &result, nil
}

// UnlockHint charges the hint cost once per user. A repeat unlock returns
// the content again with nothing deducted.
func (s *SubmissionService) UnlockHint(ctx context.Context, userID, challengeID, hintIndex int) (*models.HintResult, error) {
	var result models.HintResult

	err := s.ledger.InTx(ctx, func(tx repositories.SubmissionTx) error {
		user, err := tx.UserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		hints, err := tx.HintsForChallenge(ctx, challengeID)
		if err != nil {
			return err
		}
		if hintIndex < 0 || hintIndex >= len(hints) {
			return apperr.New(apperr.KindNotFound, "hint not found")
		}
		hint := hints[hintIndex]

		unlocked, err := tx.HasUnlockedHint(ctx, userID, hint.ID)
		if err != nil {
			return err
		}
		if unlocked {
			result = models.HintResult{Content: hint.Content, AlreadyUnlocked: true}
			return nil
		}

		if user.Points < hint.Cost {
			return apperr.New(apperr.KindInsufficientFunds, "not enough points to unlock hint")
		}

		if err := tx.AddUserPoints(ctx, userID, -hint.Cost); err != nil {
			return err
		}
		if err := tx.UnlockHint(ctx, userID, hint.ID); err != nil {
			return err
		}

		result = models.HintResult{Content: hint.Content, PointsDeducted: hint.Cost}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ResetAttempts purges one user's ledger rows for a challenge and recounts
// the challenge's attempts and solves from what remains, keeping the
// solved-set consistent with the ledger. Admin operation.
func (s *SubmissionService) ResetAttempts(ctx context.Context, userID, challengeID int) (int, error) {
	var attempts int

	err := s.ledger.InTx(ctx, func(tx repositories.SubmissionTx) error {
		if _, err := tx.ChallengeForUpdate(ctx, challengeID); err != nil {
			return err
		}
		if err := tx.DeleteUserSubmissions(ctx, userID, challengeID); err != nil {
			return err
		}
		if err := tx.UnmarkSolved(ctx, userID, challengeID); err != nil {
			return err
		}

		var err error
		attempts, _, err = tx.RecountChallenge(ctx, challengeID)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Log.Info("Reset user attempts",
		zap.Int("user_id", userID),
		zap.Int("challenge_id", challengeID),
		zap.Int("remaining_attempts", attempts))
	return attempts, nil
}

// History returns one user's attempts for a challenge with the remaining
// attempt budget ("unlimited" when no cap is set).
func (s *SubmissionService) History(ctx context.Context, userID int, ch *models.Challenge) (*models.SubmissionHistory, error) {
	subs, err := s.ledger.UserSubmissions(ctx, userID, ch.ID)
	if err != nil {
		return nil, err
	}

	remaining := "unlimited"
	if ch.MaxAttempts > 0 {
		left := ch.MaxAttempts - len(subs)
		if left < 0 {
			left = 0
		}
		remaining = fmt.Sprintf("%d", left)
	}

	return &models.SubmissionHistory{
		ChallengeTitle:    ch.Title,
		MaxAttempts:       ch.MaxAttempts,
		PenaltyPoints:     ch.PenaltyPoints,
		Submissions:       subs,
		AttemptsUsed:      len(subs),
		AttemptsRemaining: remaining,
	}, nil
}
