package service

import (
	"context"
	"testing"

	"hackastrophe/internal/common"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserService, *stubUserRepo, *stubOrderRepo) {
	t.Helper()
	hash, err := security.HashPassword("changeme123")
	require.NoError(t, err)

	userRepo := newStubUserRepo(
		&model.User{ID: "user-1", Username: "neo", Email: "neo@example.com",
			HashedPassword: hash, Role: model.RoleUser, Balance: 1000,
			SkillLevel: model.SkillJunior, IsActive: true},
		&model.User{ID: "admin-1", Username: "root", Email: "root@example.com",
			Role: model.RoleAdmin, IsActive: true},
	)
	orderRepo := newStubOrderRepo()
	return NewUserService(userRepo, orderRepo), userRepo, orderRepo
}

func TestGetProfile_StripsPasswordHash(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	user, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, user.HashedPassword)
	assert.Equal(t, "neo", user.Username)
}

func TestUpdateProfile(t *testing.T) {
	svc, userRepo, _ := newUserFixture(t)

	bio := "I know kung fu."
	skill := model.SkillExpert
	user, err := svc.UpdateProfile(context.Background(), "user-1",
		UpdateProfileRequest{Bio: &bio, SkillLevel: &skill})
	require.NoError(t, err)
	assert.Equal(t, "I know kung fu.", user.Bio)
	assert.Equal(t, model.SkillExpert, user.SkillLevel)

	stored, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, "I know kung fu.", stored.Bio)
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	badEmail := "not-an-email"
	_, err := svc.UpdateProfile(context.Background(), "user-1",
		UpdateProfileRequest{Email: &badEmail})
	assert.ErrorIs(t, err, common.ErrValidation)

	badSkill := "wizard"
	_, err = svc.UpdateProfile(context.Background(), "user-1",
		UpdateProfileRequest{SkillLevel: &badSkill})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	svc, userRepo, _ := newUserFixture(t)

	err := svc.ChangePassword(context.Background(), "user-1", ChangePasswordRequest{
		OldPassword: "changeme123", NewPassword: "evenbetter456",
	})
	require.NoError(t, err)

	stored, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.True(t, security.CheckPasswordHash("evenbetter456", stored.HashedPassword))
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	err := svc.ChangePassword(context.Background(), "user-1", ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "evenbetter456",
	})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestTopUp(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	user, err := svc.TopUp(context.Background(), "user-1", TopUpRequest{Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, user.Balance)
}

func TestTopUp_RejectsNonPositive(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	for _, amount := range []float64{0, -100} {
		_, err := svc.TopUp(context.Background(), "user-1", TopUpRequest{Amount: amount})
		assert.ErrorIs(t, err, common.ErrValidation)
	}
}

func TestChangeRole(t *testing.T) {
	svc, userRepo, _ := newUserFixture(t)

	err := svc.ChangeRole(context.Background(), "admin-1", "user-1", model.RoleCreator)
	require.NoError(t, err)

	stored, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, model.RoleCreator, stored.Role)
}

func TestChangeRole_RejectsSelfChange(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	err := svc.ChangeRole(context.Background(), "admin-1", "admin-1", model.RoleUser)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestChangeRole_RejectsUnknownRole(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	err := svc.ChangeRole(context.Background(), "admin-1", "user-1", "superuser")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestToggleStatus(t *testing.T) {
	svc, userRepo, _ := newUserFixture(t)

	user, err := svc.ToggleStatus(context.Background(), "admin-1", "user-1")
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	stored, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.False(t, stored.IsActive)

	user, err = svc.ToggleStatus(context.Background(), "admin-1", "user-1")
	require.NoError(t, err)
	assert.True(t, user.IsActive)
}

func TestToggleStatus_RejectsSelfBan(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	_, err := svc.ToggleStatus(context.Background(), "admin-1", "admin-1")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestListPurchases(t *testing.T) {
	svc, _, orderRepo := newUserFixture(t)
	orderRepo.purchases["user-1/ch-1"] = &model.PurchasedChallenge{
		ID: "p-1", UserID: "user-1", ChallengeID: "ch-1",
	}

	items, err := svc.ListPurchases(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
