package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"
	"hackastrophe/internal/domain/repository"

	"github.com/google/uuid"
)

// OrderService converts a non-empty cart into a paid invoice. The
// checkout touches four tables (invoices, invoice_items,
// purchased_challenges, users.balance) whose consistency cannot
// tolerate partial application, so every write happens inside one
// transaction that is rolled back wholesale on any failure.
type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	userRepo  repository.UserRepository
	db        *sql.DB // For transactions
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	userRepo repository.UserRepository,
	db *sql.DB,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		userRepo:  userRepo,
		db:        db,
	}
}

type CheckoutRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
}

func (s *OrderService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*model.Invoice, error) {
	if strings.TrimSpace(req.Address) == "" || strings.TrimSpace(req.City) == "" || strings.TrimSpace(req.Zip) == "" {
		return nil, common.Errorf("billing address, city and zip are required: %w", common.ErrValidation)
	}

	items, err := s.cartRepo.ListItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, common.ErrEmptyCart
	}

	// Re-validate the staged rows against what will actually be
	// charged: a challenge deactivated or deleted after being added
	// would silently change the total otherwise. Reject and let the
	// user remove the stale rows.
	entries, err := s.cartRepo.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart entries: %w", err)
	}
	if len(entries) != len(items) {
		live := make(map[string]bool, len(items))
		for _, it := range items {
			live[it.ChallengeID] = true
		}
		var stale []string
		for _, e := range entries {
			if !live[e.ChallengeID] {
				stale = append(stale, e.ChallengeID)
			}
		}
		return nil, common.Errorf("cart contains challenges no longer available (%s): %w",
			strings.Join(stale, ", "), common.ErrCartChanged)
	}

	var total float64
	for _, it := range items {
		total += it.LineTotal()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf("user not found: %w", err)
	}
	if user.Balance < total {
		return nil, &common.InsufficientBalanceError{Required: total, Available: user.Balance}
	}

	invoice := &model.Invoice{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         total,
		BillingAddress: req.Address,
		BillingCity:    req.City,
		BillingZip:     req.Zip,
		Status:         model.InvoiceStatusPaid,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.orderRepo.CreateInvoice(ctx, tx, invoice); err != nil {
		return nil, common.Errorf("failed to create invoice: %w", err)
	}

	for _, it := range items {
		challengeID := it.ChallengeID
		item := &model.InvoiceItem{
			ID:             uuid.NewString(),
			InvoiceID:      invoice.ID,
			ChallengeID:    &challengeID,
			ChallengeTitle: it.Title, // snapshot, immune to later edits
			Price:          it.Price, // snapshot
			Quantity:       it.Quantity,
		}
		if err := s.orderRepo.CreateInvoiceItem(ctx, tx, item); err != nil {
			return nil, common.Errorf("failed to create invoice item: %w", err)
		}

		purchase := &model.PurchasedChallenge{
			ID:          uuid.NewString(),
			UserID:      userID,
			ChallengeID: it.ChallengeID,
		}
		if err := s.orderRepo.CreatePurchase(ctx, tx, purchase); err != nil {
			// ErrDuplicatePurchase when a concurrent checkout already
			// bought this challenge; everything rolls back.
			return nil, common.Errorf("failed to record purchase: %w", err)
		}
		invoice.Items = append(invoice.Items, *item)
	}

	// The deduction re-verifies funds atomically; a concurrent
	// balance-reducing operation between the pre-check above and here
	// makes this return false and the whole checkout roll back.
	deducted, err := s.userRepo.DeductBalance(ctx, tx, userID, total)
	if err != nil {
		return nil, common.Errorf("failed to deduct balance: %w", err)
	}
	if !deducted {
		return nil, common.Errorf("balance changed during checkout: %w", common.ErrBalanceDeduction)
	}

	if err := s.cartRepo.Clear(ctx, tx, userID); err != nil {
		return nil, common.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Checkout completed: invoice %s, user %s, amount %.2f", invoice.ID, userID, total)
	return invoice, nil
}

// GetInvoice returns an invoice with its items. Only the invoice owner
// or an admin may read it.
func (s *OrderService) GetInvoice(ctx context.Context, callerID, callerRole, invoiceID string) (*model.Invoice, error) {
	invoice, err := s.orderRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, common.Errorf("invoice not found: %w", err)
	}
	if invoice.UserID != callerID && callerRole != model.RoleAdmin {
		return nil, common.Errorf("invoice belongs to another user: %w", common.ErrForbidden)
	}
	return invoice, nil
}

func (s *OrderService) ListUserInvoices(ctx context.Context, userID string) ([]model.Invoice, error) {
	invoices, err := s.orderRepo.ListInvoicesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

func (s *OrderService) ListAllInvoices(ctx context.Context) ([]model.Invoice, error) {
	invoices, err := s.orderRepo.ListAllInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}
