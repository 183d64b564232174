package model

import "time"

type CartEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ChallengeID string    `json:"challenge_id"`
	Quantity    int       `json:"quantity"`
	AddedAt     time.Time `json:"added_at"`
}

// CartItem is a cart entry joined with live challenge data, as shown on
// the cart page. Only entries whose challenge is still active are
// returned as items.
type CartItem struct {
	EntryID     string              `json:"entry_id"`
	ChallengeID string              `json:"challenge_id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Category    ChallengeCategory   `json:"category"`
	Difficulty  ChallengeDifficulty `json:"difficulty"`
	Price       float64             `json:"price"`
	Quantity    int                 `json:"quantity"`
	AuthorName  string              `json:"author_name"`
	AddedAt     time.Time           `json:"added_at"`
}

func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}
