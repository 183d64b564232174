package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"hackastrophe/internal/common"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/domain/repository"
	"hackastrophe/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SubmissionService validates submitted flags against purchased
// challenges. Per (user, challenge) the state machine is
// NotPurchased -> Purchased(unsolved) -> Purchased(solved); solved is
// terminal.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	orderRepo      repository.OrderRepository
	challengeRepo  repository.ChallengeRepository
	userRepo       repository.UserRepository
	rdb            *redis.Client // rate limiting; optional
	db             *sql.DB       // For transactions
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	orderRepo repository.OrderRepository,
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	rdb *redis.Client,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		orderRepo:      orderRepo,
		challengeRepo:  challengeRepo,
		userRepo:       userRepo,
		rdb:            rdb,
		db:             db,
	}
}

type SubmitFlagRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Flag        string `json:"flag" validate:"required"`
}

func (s *SubmissionService) SubmitFlag(ctx context.Context, userID string, req SubmitFlagRequest) (*model.SubmissionOutcome, error) {
	if req.Flag == "" {
		return nil, common.Errorf("flag is required: %w", common.ErrValidation)
	}

	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	purchase, err := s.orderRepo.FindPurchase(ctx, userID, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("challenge must be purchased before submitting: %w", common.ErrNotPurchased)
	}
	if purchase.IsSolved {
		return nil, common.ErrAlreadySolved
	}

	challenge, err := s.challengeRepo.FindByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}

	// bcrypt compares in constant time; the plaintext flag is never
	// compared against stored data directly.
	isValid := security.CheckPasswordHash(req.Flag, challenge.FlagHash)

	// The audit row is appended for every call, valid or not, outside
	// the grant transaction so it survives even a lost solve race.
	submission := &model.Submission{
		ID:            uuid.NewString(),
		UserID:        userID,
		ChallengeID:   req.ChallengeID,
		FlagSubmitted: req.Flag,
		IsValid:       isValid,
	}
	if err := s.submissionRepo.Create(ctx, nil, submission); err != nil {
		return nil, common.Errorf("failed to record submission: %w", err)
	}

	if !isValid {
		return &model.SubmissionOutcome{Valid: false}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	solved, err := s.orderRepo.MarkSolved(ctx, tx, userID, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("failed to mark solved: %w", err)
	}
	if !solved {
		// A concurrent submission solved it first; no double grant.
		return nil, common.ErrAlreadySolved
	}

	if err := s.challengeRepo.IncrementSolvedCount(ctx, tx, req.ChallengeID); err != nil {
		return nil, common.Errorf("failed to update solved count: %w", err)
	}

	// Points were fixed when the challenge was created, not re-derived
	// here.
	if err := s.userRepo.IncrementScore(ctx, tx, userID, challenge.Points); err != nil {
		return nil, common.Errorf("failed to grant points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	s.bumpLeaderboard(ctx, userID, challenge.Points)

	log.Printf("User %s solved challenge %s (+%d points)", userID, req.ChallengeID, challenge.Points)
	return &model.SubmissionOutcome{Valid: true, PointsEarned: challenge.Points}, nil
}

// ListSubmissions returns the caller's submission history for one
// challenge, addressed by slug.
func (s *SubmissionService) ListSubmissions(ctx context.Context, userID, challengeSlug string) ([]model.Submission, error) {
	challenge, err := s.challengeRepo.FindBySlug(ctx, challengeSlug)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	subs, err := s.submissionRepo.ListByUserAndChallenge(ctx, userID, challenge.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

// checkRateLimit caps flag submissions per user per window. The audit
// log makes offline analysis possible; this is the online guard.
func (s *SubmissionService) checkRateLimit(ctx context.Context, userID string) error {
	if s.rdb == nil {
		return nil
	}
	key := "ratelimit:submission:" + userID
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down must not block submissions
		log.Printf("submission rate limit check failed: %v", err)
		return nil
	}
	if count == 1 {
		s.rdb.Expire(ctx, key, config.AppConfig.SubmissionRateWindow)
	}
	if count > int64(config.AppConfig.SubmissionRateLimit) {
		return common.Errorf("retry after the current window: %w", common.ErrRateLimited)
	}
	return nil
}

func (s *SubmissionService) bumpLeaderboard(ctx context.Context, userID string, points int) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.ZIncrBy(ctx, config.AppConfig.LeaderboardKey, float64(points), userID).Err(); err != nil {
		log.Printf("leaderboard update failed for user %s: %v", userID, err)
	}
}
