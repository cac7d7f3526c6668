package models

import (
	"errors"
	"time"
)

var ErrExpInPast = errors.New("revoked token expiration must be in the future")

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
	TokenTypeConfirm TokenType = "confirm"
)

// Claims is the verified content of a token, detached from the signing library.
// SessionID is set on access tokens and names the refresh token the session was started with.
type Claims struct {
	UserID    string
	Role      Role
	JTI       string
	SessionID string
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type TokenPair struct {
	UserID  string
	Access  IssuedToken
	Refresh IssuedToken
}

// RefreshTokenRecord is the single active refresh session of a user.
type RefreshTokenRecord struct {
	UserID    string
	JTI       string
	ExpiresAt time.Time
}

func (r RefreshTokenRecord) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// RevokedToken is an entry of the revocation ledger. Exp drives the store-side expiry.
type RevokedToken struct {
	JTI string
	Exp time.Time
}

func (t RevokedToken) Validate(now time.Time) error {
	if t.JTI == "" {
		return errors.New("revoked token jti is empty")
	}
	if !t.Exp.After(now) {
		return ErrExpInPast
	}
	return nil
}
