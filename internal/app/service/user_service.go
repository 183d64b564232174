package service

import (
	"context"
	"fmt"
	"net/mail"

	"hackastrophe/internal/common"
	"hackastrophe/internal/common/security"
	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/domain/repository"
)

type UserService struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
}

func NewUserService(userRepo repository.UserRepository, orderRepo repository.OrderRepository) *UserService {
	return &UserService{userRepo: userRepo, orderRepo: orderRepo}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf("user not found: %w", err)
	}
	user.HashedPassword = ""
	return user, nil
}

type UpdateProfileRequest struct {
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
	SkillLevel     *string `json:"skill_level,omitempty" validate:"omitempty,oneof=junior intermediate senior expert"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf("user not found: %w", err)
	}

	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, common.Errorf("invalid email address: %w", common.ErrValidation)
		}
		user.Email = *req.Email
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.SkillLevel != nil {
		if !model.IsValidSkillLevel(*req.SkillLevel) {
			return nil, common.Errorf("invalid skill level: %w", common.ErrValidation)
		}
		user.SkillLevel = *req.SkillLevel
	}
	if req.ProfilePicture != nil {
		user.ProfilePicture = req.ProfilePicture
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	user.HashedPassword = ""
	return user, nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return common.Errorf("new password must be at least 8 characters: %w", common.ErrValidation)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return common.Errorf("user not found: %w", err)
	}

	if !security.CheckPasswordHash(req.OldPassword, user.HashedPassword) {
		return common.Errorf("old password is incorrect: %w", common.ErrUnauthorized)
	}

	newHash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// TopUp credits the user's internal balance. The credit is an atomic
// increment at the store level.
func (s *UserService) TopUp(ctx context.Context, userID string, req TopUpRequest) (*model.User, error) {
	if req.Amount <= 0 {
		return nil, common.Errorf("top-up amount must be positive: %w", common.ErrValidation)
	}
	if err := s.userRepo.CreditBalance(ctx, userID, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit balance: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

func (s *UserService) ListPurchases(ctx context.Context, userID string) ([]model.PurchasedItem, error) {
	items, err := s.orderRepo.ListPurchasedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return items, nil
}

func (s *UserService) GetStats(ctx context.Context, userID string) (*model.UserStats, error) {
	stats, err := s.userRepo.GetStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}
	return stats, nil
}

// Admin operations below.

func (s *UserService) ListUsers(ctx context.Context, page, pageSize int) ([]model.User, int, error) {
	offset := (page - 1) * pageSize
	users, total, err := s.userRepo.List(ctx, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// ChangeRole is admin-only (enforced by routing); an admin may not
// change their own role.
func (s *UserService) ChangeRole(ctx context.Context, callerID, targetID, role string) error {
	if callerID == targetID {
		return common.Errorf("cannot change your own role: %w", common.ErrForbidden)
	}
	if !model.IsValidRole(role) {
		return common.Errorf("invalid role %q: %w", role, common.ErrValidation)
	}
	if err := s.userRepo.SetRole(ctx, targetID, role); err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	return nil
}

// ToggleStatus bans or unbans a user; an admin may not ban themself.
func (s *UserService) ToggleStatus(ctx context.Context, callerID, targetID string) (*model.User, error) {
	if callerID == targetID {
		return nil, common.Errorf("cannot change your own status: %w", common.ErrForbidden)
	}
	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, common.Errorf("user not found: %w", err)
	}
	if err := s.userRepo.SetActive(ctx, targetID, !target.IsActive); err != nil {
		return nil, fmt.Errorf("failed to toggle status: %w", err)
	}
	target.IsActive = !target.IsActive
	target.HashedPassword = ""
	return target, nil
}
