package models

import "time"

type Role int

const (
	RoleAdmin    Role = 1
	RoleStaff    Role = 2
	RoleCustomer Role = 3
)

func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RoleCustomer
}

const (
	AuthProviderEmail  = "email"
	AuthProviderGoogle = "google"
)

// User is the account document. PasswordHash is empty for accounts created through OAuth.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name" validate:"required,min=1,max=50"`
	Email        string    `json:"email" validate:"required,email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role" validate:"min=1,max=3"`
	Phone        string    `json:"phone,omitempty" validate:"omitempty,max=20"`
	Addresses    []string  `json:"addresses,omitempty" validate:"dive,min=2"`
	Confirmed    bool      `json:"confirmed"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserUpsert carries the fields written when an external identity provider vouches for an email.
type UserUpsert struct {
	Name         string
	AuthProvider string
}

// OAuthIdentity is what the identity provider tells us about the signed-in person.
type OAuthIdentity struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// ConfirmationMessage is handed to the mailer so it can send the confirmation link.
type ConfirmationMessage struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}
