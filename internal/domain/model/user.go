package model

import (
	"time"
)

const (
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

const (
	SkillJunior       = "junior"
	SkillIntermediate = "intermediate"
	SkillSenior       = "senior"
	SkillExpert       = "expert"
)

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	Role           string    `json:"role"`
	Balance        float64   `json:"balance"`
	Score          int       `json:"score"`
	Bio            string    `json:"bio"`
	SkillLevel     string    `json:"skill_level"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

func IsValidSkillLevel(level string) bool {
	switch level {
	case SkillJunior, SkillIntermediate, SkillSenior, SkillExpert:
		return true
	}
	return false
}

// UserStats aggregates a user's marketplace activity for the account page.
type UserStats struct {
	ChallengesCreated   int     `json:"challenges_created"`
	ChallengesPurchased int     `json:"challenges_purchased"`
	ChallengesSolved    int     `json:"challenges_solved"`
	TotalSpent          float64 `json:"total_spent"`
	TotalSubmissions    int     `json:"total_submissions"`
}
