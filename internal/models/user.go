package models

import "time"

type SubscriptionTier string

const (
	TierFree  SubscriptionTier = "free"
	TierPro   SubscriptionTier = "pro"
	TierElite SubscriptionTier = "elite"
)

type User struct {
	ID             string
	ExternalID     string
	Email          string
	Name           string
	ProfileImage   *string
	ProblemsSolved int
	IsPremium      bool
	Tier           SubscriptionTier
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Image returns the profile image or "" when unset.
func (u User) Image() string {
	if u.ProfileImage == nil {
		return ""
	}
	return *u.ProfileImage
}

// PublicUser is the projection exposed on leaderboards and inside
// expanded session responses.
type PublicUser struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ProfileImage   *string `json:"profileImage,omitempty"`
	ProblemsSolved int     `json:"problemsSolved"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		ProfileImage:   u.ProfileImage,
		ProblemsSolved: u.ProblemsSolved,
	}
}
