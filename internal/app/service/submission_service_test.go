package service

import (
	"context"
	"testing"

	"hackastrophe/internal/common"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFlag = "FLAG{th3_c4k3_1s_4_l13}"

func newSubmissionFixture(t *testing.T) (*SubmissionService, *stubSubmissionRepo, *stubOrderRepo, *stubChallengeRepo, *stubUserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	flagHash, err := security.HashPassword(testFlag)
	require.NoError(t, err)

	ch := webChallenge("ch-1", "SQL Injection 101", 100)
	ch.FlagHash = flagHash

	subRepo := &stubSubmissionRepo{}
	orderRepo := newStubOrderRepo()
	challengeRepo := newStubChallengeRepo(ch)
	userRepo := newStubUserRepo(&model.User{
		ID: "user-1", Username: "neo", Email: "neo@example.com",
		Role: model.RoleUser, Score: 0, IsActive: true,
	})

	svc := NewSubmissionService(subRepo, orderRepo, challengeRepo, userRepo, nil, db)
	return svc, subRepo, orderRepo, challengeRepo, userRepo, mock
}

func purchase(orderRepo *stubOrderRepo, userID, challengeID string) {
	orderRepo.purchases[userID+"/"+challengeID] = &model.PurchasedChallenge{
		ID: "p-" + challengeID, UserID: userID, ChallengeID: challengeID,
	}
}

func TestSubmitFlag_Correct(t *testing.T) {
	svc, subRepo, orderRepo, challengeRepo, userRepo, mock := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")

	mock.ExpectBegin()
	mock.ExpectCommit()

	outcome, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: testFlag,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, outcome.Valid)
	assert.Equal(t, model.DifficultyMid.Points(), outcome.PointsEarned)

	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, model.DifficultyMid.Points(), user.Score)

	p, _ := orderRepo.FindPurchase(context.Background(), "user-1", "ch-1")
	assert.True(t, p.IsSolved)

	ch, _ := challengeRepo.FindByID(context.Background(), "ch-1")
	assert.Equal(t, 1, ch.SolvedCount)

	require.Len(t, subRepo.submissions, 1)
	assert.True(t, subRepo.submissions[0].IsValid)
}

func TestSubmitFlag_Wrong(t *testing.T) {
	svc, subRepo, orderRepo, _, userRepo, mock := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")

	outcome, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: "FLAG{nope}",
	})
	require.NoError(t, err)
	// No grant transaction for a wrong flag.
	require.NoError(t, mock.ExpectationsWereMet())

	assert.False(t, outcome.Valid)
	assert.Zero(t, outcome.PointsEarned)

	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Zero(t, user.Score)

	p, _ := orderRepo.FindPurchase(context.Background(), "user-1", "ch-1")
	assert.False(t, p.IsSolved)

	// The attempt is still on record.
	require.Len(t, subRepo.submissions, 1)
	assert.False(t, subRepo.submissions[0].IsValid)
	assert.Equal(t, "FLAG{nope}", subRepo.submissions[0].FlagSubmitted)
}

func TestSubmitFlag_AuditRowPerCall(t *testing.T) {
	svc, subRepo, orderRepo, _, _, mock := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")

	for _, flag := range []string{"FLAG{a}", "FLAG{b}", "FLAG{c}"} {
		_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
			ChallengeID: "ch-1", Flag: flag,
		})
		require.NoError(t, err)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: testFlag,
	})
	require.NoError(t, err)

	assert.Len(t, subRepo.submissions, 4)
}

func TestSubmitFlag_NotPurchased(t *testing.T) {
	svc, subRepo, _, _, _, _ := newSubmissionFixture(t)

	_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: testFlag,
	})
	assert.ErrorIs(t, err, common.ErrNotPurchased)
	assert.Empty(t, subRepo.submissions)
}

func TestSubmitFlag_AlreadySolved(t *testing.T) {
	svc, subRepo, orderRepo, _, userRepo, _ := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")
	orderRepo.purchases["user-1/ch-1"].IsSolved = true

	_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: testFlag,
	})
	assert.ErrorIs(t, err, common.ErrAlreadySolved)
	assert.Empty(t, subRepo.submissions)

	// No double grant.
	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Zero(t, user.Score)
}

func TestSubmitFlag_LostSolveRace(t *testing.T) {
	svc, subRepo, orderRepo, _, userRepo, mock := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")

	// The purchase reads as unsolved but a concurrent submission wins
	// the conditional update, so MarkSolved touches no row.
	orderRepo.markSolvedFails = true

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{
		ChallengeID: "ch-1", Flag: testFlag,
	})
	assert.ErrorIs(t, err, common.ErrAlreadySolved)
	require.NoError(t, mock.ExpectationsWereMet())

	// The audit row was written before the grant transaction, so it
	// survives the lost race.
	assert.Len(t, subRepo.submissions, 1)

	// No double grant.
	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Zero(t, user.Score)
}

func TestSubmitFlag_EmptyFlag(t *testing.T) {
	svc, subRepo, orderRepo, _, _, _ := newSubmissionFixture(t)
	purchase(orderRepo, "user-1", "ch-1")

	_, err := svc.SubmitFlag(context.Background(), "user-1", SubmitFlagRequest{ChallengeID: "ch-1"})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, subRepo.submissions)
}

func TestListSubmissions(t *testing.T) {
	svc, subRepo, _, _, _, _ := newSubmissionFixture(t)
	subRepo.submissions = []model.Submission{
		{ID: "s-1", UserID: "user-1", ChallengeID: "ch-1", IsValid: false},
		{ID: "s-2", UserID: "user-1", ChallengeID: "ch-1", IsValid: true},
		{ID: "s-3", UserID: "user-2", ChallengeID: "ch-1", IsValid: true},
	}

	subs, err := svc.ListSubmissions(context.Background(), "user-1", "ch-1")
	require.NoError(t, err)
	assert.Len(t, subs, 2)
}
