package service

import (
	"context"
	"testing"

	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardTop_SQLFallback(t *testing.T) {
	userRepo := newStubUserRepo()
	userRepo.topEntries = []model.LeaderboardEntry{
		{Rank: 1, UserID: "user-1", Username: "neo", Score: 500},
		{Rank: 2, UserID: "user-2", Username: "trinity", Score: 300},
	}
	svc := NewLeaderboardService(userRepo, nil)

	entries, err := svc.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "neo", entries[0].Username)
	assert.Equal(t, 500, entries[0].Score)
}

func TestLeaderboardTop_CapsLimit(t *testing.T) {
	userRepo := newStubUserRepo()
	for i := 0; i < config.AppConfig.LeaderboardSize+10; i++ {
		userRepo.topEntries = append(userRepo.topEntries, model.LeaderboardEntry{Rank: i + 1})
	}
	svc := NewLeaderboardService(userRepo, nil)

	// Zero and oversized limits fall back to the configured size.
	for _, limit := range []int{0, -5, config.AppConfig.LeaderboardSize + 100} {
		entries, err := svc.Top(context.Background(), limit)
		require.NoError(t, err)
		assert.Len(t, entries, config.AppConfig.LeaderboardSize)
	}
}
