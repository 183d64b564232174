package service

import (
	"context"
	"fmt"
	"log"

	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/domain/repository"
	"hackastrophe/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// LeaderboardService serves the top scorers. Redis holds a ZSET mirror
// of scores (updated on each solve); when Redis is unavailable the
// users table is the source of truth.
type LeaderboardService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
}

func NewLeaderboardService(userRepo repository.UserRepository, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{userRepo: userRepo, rdb: rdb}
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > config.AppConfig.LeaderboardSize {
		limit = config.AppConfig.LeaderboardSize
	}

	if s.rdb != nil {
		entries, err := s.topFromRedis(ctx, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			log.Printf("leaderboard redis read failed, falling back to SQL: %v", err)
		}
	}

	entries, err := s.userRepo.TopByScore(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return entries, nil
}

func (s *LeaderboardService) topFromRedis(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, config.AppConfig.LeaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			// User may have been removed; skip the ghost entry
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   userID,
			Username: user.Username,
			Score:    int(z.Score),
		})
	}
	return entries, nil
}
