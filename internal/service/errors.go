package service

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNotConfirmed         = errors.New("email is not confirmed")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")

	ErrNotAuthorized        = errors.New("not authorized")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrForbiddenField       = errors.New("field may not be set")
	ErrValidation           = errors.New("validation failed")
	ErrOAuthEmailUnverified = errors.New("identity provider did not verify the email")

	ErrSettingNotFound = errors.New("setting not found")
	ErrSettingExists   = errors.New("setting name already in use")
)
