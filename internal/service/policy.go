package service

import (
	"time"

	"github.com/rryowa/shopapi/internal/models"
)

// TokenTTL is the lifetime pair granted to a role.
type TokenTTL struct {
	Access  time.Duration
	Refresh time.Duration
}

// Higher privilege gets shorter lifetimes.
//
//nolint:gochecknoglobals // read-only lookup table
var rolePolicies = map[models.Role]TokenTTL{
	models.RoleAdmin:    {Access: 15 * time.Minute, Refresh: 3 * time.Hour},
	models.RoleStaff:    {Access: 3 * time.Hour, Refresh: 6 * time.Hour},
	models.RoleCustomer: {Access: 24 * time.Hour, Refresh: 30 * 24 * time.Hour},
}

// PolicyForRole falls back to the customer policy for unknown roles.
func PolicyForRole(role models.Role) TokenTTL {
	if p, ok := rolePolicies[role]; ok {
		return p
	}
	return rolePolicies[models.RoleCustomer]
}

// SessionLifetime bounds how long any access token of a session started now can stay valid:
// the longest refresh window plus the longest access token minted at its very end.
func SessionLifetime() time.Duration {
	var maxAccess, maxRefresh time.Duration
	for _, p := range rolePolicies {
		maxAccess = max(maxAccess, p.Access)
		maxRefresh = max(maxRefresh, p.Refresh)
	}
	return maxRefresh + maxAccess
}
