package model

import "time"

type InvoiceStatus string

const (
	InvoiceStatusPaid InvoiceStatus = "paid"
)

// Invoice is the immutable record of a completed checkout. Its amount
// equals the sum of its item line totals at creation time.
type Invoice struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	Amount         float64       `json:"amount"`
	BillingAddress string        `json:"billing_address"`
	BillingCity    string        `json:"billing_city"`
	BillingZip     string        `json:"billing_zip"`
	Status         InvoiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`

	Username  *string       `json:"username,omitempty"`   // For display
	ItemCount *int          `json:"item_count,omitempty"` // For listings
	Items     []InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem snapshots the challenge title and unit price at purchase
// time; later challenge edits must not change historical invoices.
// ChallengeID is nil once the challenge itself has been deleted; the
// snapshot fields keep the invoice readable regardless.
type InvoiceItem struct {
	ID             string  `json:"id"`
	InvoiceID      string  `json:"invoice_id"`
	ChallengeID    *string `json:"challenge_id,omitempty"`
	ChallengeTitle string  `json:"challenge_title"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
}

type PurchasedChallenge struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ChallengeID string     `json:"challenge_id"`
	PurchasedAt time.Time  `json:"purchased_at"`
	IsSolved    bool       `json:"is_solved"`
	SolvedAt    *time.Time `json:"solved_at,omitempty"`
}

// PurchasedItem is a purchase joined with live challenge data for the
// "my challenges" view.
type PurchasedItem struct {
	ChallengeID string              `json:"challenge_id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Category    ChallengeCategory   `json:"category"`
	Difficulty  ChallengeDifficulty `json:"difficulty"`
	Points      int                 `json:"points"`
	AccessURL   *string             `json:"access_url,omitempty"`
	PurchasedAt time.Time           `json:"purchased_at"`
	IsSolved    bool                `json:"is_solved"`
	SolvedAt    *time.Time          `json:"solved_at,omitempty"`
}
