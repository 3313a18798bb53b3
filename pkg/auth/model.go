package auth

import "time"

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGuest  Provider = "guest"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Profile is the onboarding questionnaire result attached to every account.
type Profile struct {
	Goal            string `json:"goal"`
	DailyTime       string `json:"dailyTime"`
	ExperienceLevel string `json:"experienceLevel"`
}

// DefaultProfile is used for guests and accounts that skipped onboarding.
func DefaultProfile() Profile {
	return Profile{
		Goal:            "Balance",
		DailyTime:       "10-15 min",
		ExperienceLevel: "Beginner",
	}
}

func profileOrDefault(p *Profile) Profile {
	if p == nil {
		return DefaultProfile()
	}
	return *p
}

// Account is a resolved identity.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Anonymous bool      `json:"anonymous"`
	Provider  Provider  `json:"provider"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
}
