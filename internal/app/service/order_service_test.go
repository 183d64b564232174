package service

import (
	"context"
	"errors"
	"testing"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webChallenge(id, title string, price float64) *model.Challenge {
	return &model.Challenge{
		ID:         id,
		Title:      title,
		Slug:       id,
		Category:   model.CategoryWeb,
		Difficulty: model.DifficultyMid,
		Price:      price,
		Points:     model.DifficultyMid.Points(),
		AuthorID:   "author-1",
		IsActive:   true,
	}
}

func billing() CheckoutRequest {
	return CheckoutRequest{Address: "1 Hacker Way", City: "Rotterdam", Zip: "3011"}
}

func newCheckoutFixture(t *testing.T, balance float64) (*OrderService, *stubOrderRepo, *stubCartRepo, *stubUserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orderRepo := newStubOrderRepo()
	cartRepo := newStubCartRepo()
	userRepo := newStubUserRepo(&model.User{
		ID: "user-1", Username: "neo", Email: "neo@example.com",
		Role: model.RoleUser, Balance: balance, IsActive: true,
	})
	svc := NewOrderService(orderRepo, cartRepo, userRepo, db)
	return svc, orderRepo, cartRepo, userRepo, mock
}

func TestCheckout_Success(t *testing.T) {
	svc, orderRepo, cartRepo, userRepo, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)
	cartRepo.stage("user-1", webChallenge("ch-2", "XSS Playground", 200), 1)

	mock.ExpectBegin()
	mock.ExpectCommit()

	invoice, err := svc.Checkout(context.Background(), "user-1", billing())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 300.0, invoice.Amount)
	assert.Equal(t, model.InvoiceStatusPaid, invoice.Status)
	assert.Len(t, invoice.Items, 2)
	assert.False(t, invoice.CreatedAt.IsZero(), "response must carry the persisted timestamp")

	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, 700.0, user.Balance)

	owned, _ := orderRepo.HasPurchased(context.Background(), "user-1", "ch-1")
	assert.True(t, owned)
	owned, _ = orderRepo.HasPurchased(context.Background(), "user-1", "ch-2")
	assert.True(t, owned)

	assert.Equal(t, []string{"user-1"}, cartRepo.cleared)
	items, _ := cartRepo.ListItems(context.Background(), "user-1")
	assert.Empty(t, items)
}

func TestCheckout_SnapshotsTitleAndPrice(t *testing.T) {
	svc, orderRepo, cartRepo, _, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "Buffer Overflow Basics", 150), 2)

	mock.ExpectBegin()
	mock.ExpectCommit()

	invoice, err := svc.Checkout(context.Background(), "user-1", billing())
	require.NoError(t, err)

	require.Len(t, orderRepo.invoiceItems, 1)
	item := orderRepo.invoiceItems[0]
	assert.Equal(t, invoice.ID, item.InvoiceID)
	require.NotNil(t, item.ChallengeID)
	assert.Equal(t, "ch-1", *item.ChallengeID)
	assert.Equal(t, "Buffer Overflow Basics", item.ChallengeTitle)
	assert.Equal(t, 150.0, item.Price)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 300.0, invoice.Amount)
}

func TestCheckout_InsufficientBalance(t *testing.T) {
	svc, orderRepo, cartRepo, userRepo, mock := newCheckoutFixture(t, 100)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)
	cartRepo.stage("user-1", webChallenge("ch-2", "XSS Playground", 200), 1)

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	require.Error(t, err)

	var ibe *common.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, 300.0, ibe.Required)
	assert.Equal(t, 100.0, ibe.Available)

	// Nothing was written: no transaction began, balance and cart intact.
	require.NoError(t, mock.ExpectationsWereMet())
	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, 100.0, user.Balance)
	assert.Empty(t, orderRepo.invoices)
	assert.Empty(t, cartRepo.cleared)
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, _, _, _ := newCheckoutFixture(t, 1000)

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	assert.ErrorIs(t, err, common.ErrEmptyCart)
}

func TestCheckout_MissingBillingInfo(t *testing.T) {
	svc, _, cartRepo, _, _ := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)

	for _, req := range []CheckoutRequest{
		{City: "Rotterdam", Zip: "3011"},
		{Address: "1 Hacker Way", Zip: "3011"},
		{Address: "1 Hacker Way", City: "Rotterdam"},
		{Address: "   ", City: "Rotterdam", Zip: "3011"},
	} {
		_, err := svc.Checkout(context.Background(), "user-1", req)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
}

func TestCheckout_RejectsStaleCart(t *testing.T) {
	svc, orderRepo, cartRepo, userRepo, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)

	// Deactivated after being added: entry row remains, joined item gone.
	gone := webChallenge("ch-2", "Retired Challenge", 200)
	gone.IsActive = false
	cartRepo.stage("user-1", gone, 1)

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	require.ErrorIs(t, err, common.ErrCartChanged)
	assert.Contains(t, err.Error(), "ch-2")

	// The live item was not charged either.
	require.NoError(t, mock.ExpectationsWereMet())
	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, 1000.0, user.Balance)
	assert.Empty(t, orderRepo.invoices)
}

func TestCheckout_RollsBackOnPurchaseFailure(t *testing.T) {
	svc, orderRepo, cartRepo, userRepo, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)
	orderRepo.purchaseErr = common.ErrDuplicatePurchase

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	require.ErrorIs(t, err, common.ErrDuplicatePurchase)
	require.NoError(t, mock.ExpectationsWereMet())

	user, _ := userRepo.FindByID(context.Background(), "user-1")
	assert.Equal(t, 1000.0, user.Balance)
	assert.Empty(t, cartRepo.cleared, "cart must survive a failed checkout")
}

func TestCheckout_RollsBackWhenBalanceRaced(t *testing.T) {
	svc, _, cartRepo, userRepo, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)

	// A concurrent spend between the pre-check and the conditional
	// deduction makes the deduction touch no row.
	userRepo.deductFails = true

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	require.ErrorIs(t, err, common.ErrBalanceDeduction)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, cartRepo.cleared)
}

func TestCheckout_RollsBackOnClearFailure(t *testing.T) {
	svc, _, cartRepo, _, mock := newCheckoutFixture(t, 1000)
	cartRepo.stage("user-1", webChallenge("ch-1", "SQL Injection 101", 100), 1)
	cartRepo.clearErr = errors.New("db gone")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), "user-1", billing())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInvoice_OwnerAndAdminOnly(t *testing.T) {
	svc, orderRepo, _, _, _ := newCheckoutFixture(t, 1000)
	orderRepo.invoices["inv-1"] = &model.Invoice{ID: "inv-1", UserID: "user-1", Amount: 100}

	_, err := svc.GetInvoice(context.Background(), "user-2", model.RoleUser, "inv-1")
	assert.ErrorIs(t, err, common.ErrForbidden)

	inv, err := svc.GetInvoice(context.Background(), "user-1", model.RoleUser, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)

	inv, err = svc.GetInvoice(context.Background(), "user-2", model.RoleAdmin, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", inv.ID)
}

func TestGetInvoice_NotFound(t *testing.T) {
	svc, _, _, _, _ := newCheckoutFixture(t, 1000)

	_, err := svc.GetInvoice(context.Background(), "user-1", model.RoleUser, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
