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

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
	db            *sql.DB // For transactions
}

func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	userRepo repository.UserRepository,
	db *sql.DB,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		db:            db,
	}
}

type CreateChallengeRequest struct {
	Title       string  `json:"title" validate:"required,min=5"`
	Description string  `json:"description" validate:"required,min=20"`
	Category    string  `json:"category" validate:"required"`
	Difficulty  string  `json:"difficulty" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Flag        string  `json:"flag" validate:"required"`
	ImageURL    *string `json:"image_url,omitempty"`
	AccessURL   *string `json:"access_url,omitempty"`
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, authorID string, req CreateChallengeRequest) (*model.Challenge, error) {
	if len(req.Title) < 5 {
		return nil, common.Errorf("title must be at least 5 characters: %w", common.ErrValidation)
	}
	if len(req.Description) < 20 {
		return nil, common.Errorf("description must be at least 20 characters: %w", common.ErrValidation)
	}
	category := model.ChallengeCategory(req.Category)
	if !category.IsValid() {
		return nil, common.Errorf("invalid category %q: %w", req.Category, common.ErrValidation)
	}
	difficulty := model.ChallengeDifficulty(req.Difficulty)
	if !difficulty.IsValid() {
		return nil, common.Errorf("invalid difficulty %q: %w", req.Difficulty, common.ErrValidation)
	}
	if req.Price < 0 {
		return nil, common.Errorf("price must not be negative: %w", common.ErrValidation)
	}
	if req.Flag == "" {
		return nil, common.Errorf("flag is required: %w", common.ErrValidation)
	}

	// The flag is stored only behind a slow salted hash.
	flagHash, err := security.HashPassword(req.Flag)
	if err != nil {
		return nil, fmt.Errorf("failed to hash flag: %w", err)
	}

	challenge := &model.Challenge{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Category:    category,
		Difficulty:  difficulty,
		Price:       req.Price,
		Points:      difficulty.Points(), // fixed at creation
		AuthorID:    authorID,
		ImageURL:    req.ImageURL,
		AccessURL:   req.AccessURL,
		FlagHash:    flagHash,
		IsActive:    true,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.challengeRepo.Create(ctx, tx, challenge); err != nil {
		return nil, common.Errorf("failed to create challenge: %w", err)
	}

	// Each challenge gets an instance record; -1 means unlimited stock.
	instance := &model.ChallengeInstance{
		ID:                 uuid.NewString(),
		ChallengeID:        challenge.ID,
		AvailableInstances: -1,
	}
	if err := s.challengeRepo.CreateInstance(ctx, tx, instance); err != nil {
		return nil, common.Errorf("failed to create challenge instance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Challenge %s (%s) created by user %s", challenge.ID, challenge.Slug, authorID)
	challenge.FlagHash = ""
	return challenge, nil
}

type UpdateChallengeRequest struct {
	Title       *string  `json:"title,omitempty" validate:"omitempty,min=5"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=20"`
	Category    *string  `json:"category,omitempty"`
	Difficulty  *string  `json:"difficulty,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	ImageURL    *string  `json:"image_url,omitempty"`
	AccessURL   *string  `json:"access_url,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// UpdateChallenge is permitted only to the author or an admin. The
// challenge is addressed by slug; renaming it moves the slug.
func (s *ChallengeService) UpdateChallenge(ctx context.Context, callerID, callerRole, challengeSlug string, req UpdateChallengeRequest) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindBySlug(ctx, challengeSlug)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if challenge.AuthorID != callerID && callerRole != model.RoleAdmin {
		return nil, common.Errorf("only the author or an admin may modify a challenge: %w", common.ErrForbidden)
	}

	if req.Title != nil {
		if len(*req.Title) < 5 {
			return nil, common.Errorf("title must be at least 5 characters: %w", common.ErrValidation)
		}
		challenge.Title = *req.Title
		challenge.Slug = slug.Make(*req.Title)
	}
	if req.Description != nil {
		if len(*req.Description) < 20 {
			return nil, common.Errorf("description must be at least 20 characters: %w", common.ErrValidation)
		}
		challenge.Description = *req.Description
	}
	if req.Category != nil {
		category := model.ChallengeCategory(*req.Category)
		if !category.IsValid() {
			return nil, common.Errorf("invalid category %q: %w", *req.Category, common.ErrValidation)
		}
		challenge.Category = category
	}
	if req.Difficulty != nil {
		difficulty := model.ChallengeDifficulty(*req.Difficulty)
		if !difficulty.IsValid() {
			return nil, common.Errorf("invalid difficulty %q: %w", *req.Difficulty, common.ErrValidation)
		}
		challenge.Difficulty = difficulty
		// Points follow the difficulty for future solves; past grants
		// and invoices keep their snapshotted values.
		challenge.Points = difficulty.Points()
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, common.Errorf("price must not be negative: %w", common.ErrValidation)
		}
		challenge.Price = *req.Price
	}
	if req.ImageURL != nil {
		challenge.ImageURL = req.ImageURL
	}
	if req.AccessURL != nil {
		challenge.AccessURL = req.AccessURL
	}
	if req.IsActive != nil {
		challenge.IsActive = *req.IsActive
	}

	if err := s.challengeRepo.Update(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}
	challenge.FlagHash = ""
	return challenge, nil
}

// DeleteChallenge is permitted only to the author or an admin; related
// rows cascade.
func (s *ChallengeService) DeleteChallenge(ctx context.Context, callerID, callerRole, challengeSlug string) error {
	challenge, err := s.challengeRepo.FindBySlug(ctx, challengeSlug)
	if err != nil {
		return common.Errorf("challenge not found: %w", err)
	}
	if challenge.AuthorID != callerID && callerRole != model.RoleAdmin {
		return common.Errorf("only the author or an admin may delete a challenge: %w", common.ErrForbidden)
	}
	if err := s.challengeRepo.Delete(ctx, challenge.ID); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	log.Printf("Challenge %s deleted by user %s", challenge.ID, callerID)
	return nil
}

func (s *ChallengeService) GetChallengeBySlug(ctx context.Context, slug string) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if !challenge.IsActive {
		return nil, common.Errorf("challenge not found: %w", common.ErrNotFound)
	}
	challenge.FlagHash = ""
	return challenge, nil
}

func (s *ChallengeService) ListChallenges(ctx context.Context, filter model.ChallengeFilter, page, pageSize int) ([]model.Challenge, int, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, 0, common.Errorf("invalid category filter: %w", common.ErrValidation)
	}
	if filter.Difficulty != "" && !filter.Difficulty.IsValid() {
		return nil, 0, common.Errorf("invalid difficulty filter: %w", common.ErrValidation)
	}
	offset := (page - 1) * pageSize
	challenges, total, err := s.challengeRepo.List(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, total, nil
}

func (s *ChallengeService) ListByAuthor(ctx context.Context, authorID string) ([]model.Challenge, error) {
	challenges, err := s.challengeRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list author challenges: %w", err)
	}
	return challenges, nil
}
