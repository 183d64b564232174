package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("requested resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden access")
	ErrBadRequest     = errors.New("bad request")
	ErrConflict       = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer = errors.New("internal server error")
	ErrValidation     = errors.New("validation failed")

	// Marketplace-specific guards.
	ErrEmptyCart         = errors.New("cart is empty")
	ErrAlreadyInCart     = errors.New("challenge already in cart")
	ErrAlreadyOwned      = errors.New("challenge already purchased")
	ErrAlreadySolved     = errors.New("challenge already solved")
	ErrDuplicatePurchase = errors.New("duplicate purchase")
	ErrNotPurchased      = errors.New("challenge not purchased")
	ErrCartChanged       = errors.New("cart contents changed")
	ErrChallengeInactive = errors.New("challenge is not active")
	ErrBalanceDeduction  = errors.New("balance deduction failed")
	ErrRateLimited       = errors.New("too many submissions")
)

// InsufficientBalanceError carries the amounts so the caller can
// self-correct (e.g. top up).
type InsufficientBalanceError struct {
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %.2f, available %.2f", e.Required, e.Available)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotPurchased) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyCart) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyInCart) || errors.Is(err, ErrAlreadyOwned) ||
		errors.Is(err, ErrAlreadySolved) || errors.Is(err, ErrDuplicatePurchase) ||
		errors.Is(err, ErrCartChanged) || errors.Is(err, ErrChallengeInactive) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}

	var ibe *InsufficientBalanceError
	if errors.As(err, &ibe) {
		return http.StatusPaymentRequired
	}
	if errors.Is(err, ErrBalanceDeduction) {
		return http.StatusPaymentRequired
	}

	// Check for pgx specific errors (example for unique constraint)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
