// Package models holds the domain records shared by storage, services and
// handlers: accounts, payments and the subscription views built from them.
package models

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// OAuth providers accepted by the account service.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User is an account. SubscriptionPlan is the last tier granted and is never
// rewritten when SubscriptionEndDate passes.
type User struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	PasswordHash          *string    `json:"-"`
	Phone                 string     `json:"phone"`
	Address               string     `json:"address"`
	Province              string     `json:"province"`
	City                  string     `json:"city"`
	PlantationArea        float64    `json:"plantationArea"`
	SubscriptionPlan      string     `json:"subscriptionPlan"`
	SubscriptionStartDate *time.Time `json:"subscriptionStartDate"`
	SubscriptionEndDate   *time.Time `json:"subscriptionEndDate"`
	IsActive              bool       `json:"isActive"`
	Role                  string     `json:"role"`
	ProfilePicture        string     `json:"profilePicture"`
	OAuthProvider         *string    `json:"oauthProvider,omitempty"`
	OAuthID               *string    `json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// ProfileUpdate lists the fields a user may change on their own profile.
// Nil fields are left as they are.
type ProfileUpdate struct {
	Name           *string
	Phone          *string
	Address        *string
	Province       *string
	City           *string
	PlantationArea *float64
	ProfilePicture *string
}

// SubscriptionDue is a row of the reminder query.
type SubscriptionDue struct {
	UserID  string
	Email   string
	Name    string
	Plan    string
	EndDate time.Time
}
