package model

import (
	"time"
)

type ChallengeCategory string
type ChallengeDifficulty string

const (
	CategoryWeb           ChallengeCategory = "web"
	CategoryPwn           ChallengeCategory = "pwn"
	CategoryCrypto        ChallengeCategory = "crypto"
	CategoryForensic      ChallengeCategory = "forensic"
	CategoryReverse       ChallengeCategory = "reverse"
	CategorySteganography ChallengeCategory = "steganography"
	CategoryOSINT         ChallengeCategory = "osint"
	CategoryMisc          ChallengeCategory = "misc"

	DifficultyNoob     ChallengeDifficulty = "noob"
	DifficultyMid      ChallengeDifficulty = "mid"
	DifficultyArdu     ChallengeDifficulty = "ardu"
	DifficultyFou      ChallengeDifficulty = "fou"
	DifficultyCybersec ChallengeDifficulty = "cybersec"
)

// difficultyPoints is the fixed difficulty -> points table. Points are
// computed from it once when a challenge is created (or its difficulty
// edited) and stored on the row; past score grants and invoices are
// never rewritten.
var difficultyPoints = map[ChallengeDifficulty]int{
	DifficultyNoob:     10,
	DifficultyMid:      25,
	DifficultyArdu:     50,
	DifficultyFou:      100,
	DifficultyCybersec: 200,
}

func (d ChallengeDifficulty) IsValid() bool {
	_, ok := difficultyPoints[d]
	return ok
}

// Points returns the point value for the difficulty, 0 if unknown.
func (d ChallengeDifficulty) Points() int {
	return difficultyPoints[d]
}

func (c ChallengeCategory) IsValid() bool {
	switch c {
	case CategoryWeb, CategoryPwn, CategoryCrypto, CategoryForensic,
		CategoryReverse, CategorySteganography, CategoryOSINT, CategoryMisc:
		return true
	}
	return false
}

type Challenge struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Slug        string              `json:"slug"`
	Description string              `json:"description"`
	Category    ChallengeCategory   `json:"category"`
	Difficulty  ChallengeDifficulty `json:"difficulty"`
	Price       float64             `json:"price"`
	Points      int                 `json:"points"`
	AuthorID    string              `json:"author_id"`
	ImageURL    *string             `json:"image_url,omitempty"`
	AccessURL   *string             `json:"access_url,omitempty"`
	FlagHash    string              `json:"-"` // Never serialized
	SolvedCount int                 `json:"solved_count"`
	IsActive    bool                `json:"is_active"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	AuthorName       *string `json:"author_name,omitempty"`       // For display
	PurchaseCount    *int    `json:"purchase_count,omitempty"`    // Derived, list/detail views
	TotalSubmissions *int    `json:"total_submissions,omitempty"` // Derived, detail view
	ValidSubmissions *int    `json:"valid_submissions,omitempty"` // Derived, detail view
}

// ChallengeInstance tracks deployable stock for a challenge.
// -1 means unlimited.
type ChallengeInstance struct {
	ID                 string    `json:"id"`
	ChallengeID        string    `json:"challenge_id"`
	AvailableInstances int       `json:"available_instances"`
	CreatedAt          time.Time `json:"created_at"`
}

// ChallengeFilter narrows catalogue listings.
type ChallengeFilter struct {
	Category   ChallengeCategory
	Difficulty ChallengeDifficulty
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
}
