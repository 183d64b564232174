package service

import (
	"context"
	"testing"

	"hackastrophe/internal/common"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSignup() SignupRequest {
	return SignupRequest{
		Username: "trinity",
		Email:    "trinity@example.com",
		Password: "changeme123",
	}
}

func TestSignup_Success(t *testing.T) {
	userRepo := newStubUserRepo()
	svc := NewAuthService(userRepo)

	resp, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Equal(t, model.SkillJunior, resp.User.SkillLevel, "skill level defaults to junior")
	assert.Equal(t, config.AppConfig.InitialBalance, resp.User.Balance)
	assert.True(t, resp.User.IsActive)
	assert.Empty(t, resp.User.HashedPassword)

	stored, err := userRepo.FindByUsername(context.Background(), "trinity")
	require.NoError(t, err)
	assert.True(t, security.CheckPasswordHash("changeme123", stored.HashedPassword),
		"password must be stored hashed, not plaintext")
}

func TestSignup_Validation(t *testing.T) {
	svc := NewAuthService(newStubUserRepo())

	cases := []struct {
		name   string
		mutate func(*SignupRequest)
	}{
		{"short username", func(r *SignupRequest) { r.Username = "ab" }},
		{"bad email", func(r *SignupRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *SignupRequest) { r.Password = "short" }},
		{"bad skill level", func(r *SignupRequest) { r.SkillLevel = "wizard" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validSignup()
			tc.mutate(&req)
			_, err := svc.Signup(context.Background(), req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	svc := NewAuthService(newStubUserRepo())

	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	dup := validSignup()
	dup.Email = "other@example.com"
	_, err = svc.Signup(context.Background(), dup)
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLogin_ByEmailAndUsername(t *testing.T) {
	svc := NewAuthService(newStubUserRepo())
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	for _, loginField := range []string{"trinity@example.com", "trinity"} {
		resp, err := svc.Login(context.Background(), LoginRequest{
			LoginField: loginField, Password: "changeme123",
		})
		require.NoError(t, err, "login with %q", loginField)
		assert.NotEmpty(t, resp.Token)
		assert.Empty(t, resp.User.HashedPassword)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := NewAuthService(newStubUserRepo())
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{
		LoginField: "trinity", Password: "wrongpass123",
	})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := NewAuthService(newStubUserRepo())

	_, err := svc.Login(context.Background(), LoginRequest{
		LoginField: "nobody", Password: "changeme123",
	})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_BannedUser(t *testing.T) {
	userRepo := newStubUserRepo()
	svc := NewAuthService(userRepo)
	resp, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	require.NoError(t, userRepo.SetActive(context.Background(), resp.User.ID, false))

	_, err = svc.Login(context.Background(), LoginRequest{
		LoginField: "trinity", Password: "changeme123",
	})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}
