package domain

import "time"

// AccountStatus tracks the moderation lifecycle of an account.
type AccountStatus string

const (
	AccountPending   AccountStatus = "pending"
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// User represents an authenticated identity in the platform.
type User struct {
	ID                  string        `json:"id"`
	FirstName           string        `json:"first_name"`
	LastName            string        `json:"last_name"`
	Email               string        `json:"email"`
	Username            string        `json:"username,omitempty"`
	Avatar              string        `json:"avatar,omitempty"`
	Bio                 string        `json:"bio,omitempty"`
	Location            string        `json:"location,omitempty"`
	Phone               string        `json:"phone,omitempty"`
	Website             string        `json:"website,omitempty"`
	BirthDate           string        `json:"birth_date,omitempty"`
	Gender              string        `json:"gender,omitempty"`
	IsActive            bool          `json:"is_active"`
	IsVerified          bool          `json:"is_verified"`
	AccountStatus       AccountStatus `json:"account_status"`
	OnboardingCompleted bool          `json:"onboarding_completed"`
	PasswordHash        string        `json:"-"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Name returns the display name shown in the UI.
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// CanLogin reports whether the account is allowed to authenticate.
func (u *User) CanLogin() bool {
	return u != nil && u.IsActive && u.IsVerified && u.AccountStatus == AccountActive
}
