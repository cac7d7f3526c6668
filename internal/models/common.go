package models

//nolint:gosec //file not handles sensitive data
const (
	MwSchemeBearerAuth = "BearerAuth"

	MwClaimsKey    = "claims"
	MwRawTokenKey  = "token"
	OAuthStateName = "oauth_state"

	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)
