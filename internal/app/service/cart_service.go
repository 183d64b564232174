package service

import (
	"context"
	"errors"
	"fmt"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/domain/repository"

	"github.com/google/uuid"
)

type CartService struct {
	cartRepo      repository.CartRepository
	challengeRepo repository.ChallengeRepository
	orderRepo     repository.OrderRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	challengeRepo repository.ChallengeRepository,
	orderRepo repository.OrderRepository,
) *CartService {
	return &CartService{
		cartRepo:      cartRepo,
		challengeRepo: challengeRepo,
		orderRepo:     orderRepo,
	}
}

type AddToCartRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"omitempty,gte=1"`
}

func (s *CartService) AddEntry(ctx context.Context, userID string, req AddToCartRequest) (*model.CartEntry, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	challenge, err := s.challengeRepo.FindByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, common.Errorf("challenge not found: %w", err)
	}
	if !challenge.IsActive {
		return nil, common.Errorf("challenge %q is deactivated: %w", challenge.Slug, common.ErrChallengeInactive)
	}

	owned, err := s.orderRepo.HasPurchased(ctx, userID, req.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase state: %w", err)
	}
	if owned {
		return nil, common.Errorf("challenge %q: %w", challenge.Slug, common.ErrAlreadyOwned)
	}

	if _, err := s.cartRepo.FindEntry(ctx, userID, req.ChallengeID); err == nil {
		return nil, common.Errorf("challenge %q: %w", challenge.Slug, common.ErrAlreadyInCart)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check cart: %w", err)
	}

	entry := &model.CartEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		ChallengeID: req.ChallengeID,
		Quantity:    quantity,
	}
	if err := s.cartRepo.CreateEntry(ctx, entry); err != nil {
		// The unique constraint also guards the find/insert race
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	return entry, nil
}

// RemoveEntry is idempotent; removing an absent entry is a no-op.
func (s *CartService) RemoveEntry(ctx context.Context, userID, challengeID string) error {
	if err := s.cartRepo.DeleteEntry(ctx, userID, challengeID); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetQuantity updates an entry's quantity; zero or negative removes
// the entry.
func (s *CartService) SetQuantity(ctx context.Context, userID, challengeID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveEntry(ctx, userID, challengeID)
	}
	if err := s.cartRepo.UpdateQuantity(ctx, userID, challengeID, quantity); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Errorf("entry not in cart: %w", err)
		}
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	return nil
}

type CartView struct {
	Items []model.CartItem `json:"items"`
	Total float64          `json:"total"`
	Count int              `json:"count"`
}

// Contents returns the cart joined with live challenge data, restricted
// to currently-active challenges, plus the payable total.
func (s *CartService) Contents(ctx context.Context, userID string) (*CartView, error) {
	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	total, err := s.cartRepo.Total(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute cart total: %w", err)
	}
	return &CartView{Items: items, Total: total, Count: len(items)}, nil
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.cartRepo.Clear(ctx, nil, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
