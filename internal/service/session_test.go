package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
	"github.com/rryowa/shopapi/internal/util"
)

func TestSessionService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("customer gets one day access and thirty day refresh", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		now := env.clock.Now()

		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, u.ID, pair.UserID)
		assert.Equal(t, 24*time.Hour, pair.Access.ExpiresAt.Sub(now))
		assert.Equal(t, 30*24*time.Hour, pair.Refresh.ExpiresAt.Sub(now))

		rec, err := env.store.GetRefreshToken(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, pair.Refresh.JTI, rec.JTI)
		assert.InDelta(t, 1, env.counter(t, "shopapi_logins_total", "method", "password", "result", "success"), 0)
	})

	t.Run("unconfirmed user with correct password", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "bob@example.com", "password123", models.RoleCustomer, false)

		_, err := env.sessions.Login(ctx, "bob@example.com", "password123")
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.Equal(t, 0, env.store.RefreshTokenCount(u.ID))
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

		_, err := env.sessions.Login(ctx, "ana@example.com", "nope-nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = env.sessions.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		assert.InDelta(t, 2, env.counter(t, "shopapi_logins_total", "method", "password", "result", "invalid_credentials"), 0)
	})

	t.Run("unconfirmed user with wrong password", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "bob@example.com", "password123", models.RoleCustomer, false)

		_, err := env.sessions.Login(ctx, "bob@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("oauth account without password", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.UpsertOAuthUser(ctx, models.OAuthIdentity{Email: "g@example.com", Name: "G", EmailVerified: true})
		require.NoError(t, err)

		_, err = env.sessions.Login(ctx, "g@example.com", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repeated logins keep one refresh record", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "ana@example.com", "password123", models.RoleStaff, true)

		for range 3 {
			_, err := env.sessions.Login(ctx, "ana@example.com", "password123")
			require.NoError(t, err)
		}
		assert.Equal(t, 1, env.store.RefreshTokenCount(u.ID))
	})

	t.Run("refresh store failure fails the login", func(t *testing.T) {
		env := newTestEnv(t, withRefreshStore(func(s storage.RefreshTokenStore) storage.RefreshTokenStore {
			return failingRefreshStore{RefreshTokenStore: s, failPut: true}
		}))
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		assert.ErrorIs(t, err, errStoreDown)
		assert.Nil(t, pair)
	})
}

func TestSessionService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("only the latest login refreshes", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

		first, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		second, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		oldClaims, err := env.sessions.ParseRefreshToken(ctx, first.Refresh.Token)
		require.NoError(t, err)
		_, err = env.sessions.Refresh(ctx, oldClaims)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

		newClaims, err := env.sessions.ParseRefreshToken(ctx, second.Refresh.Token)
		require.NoError(t, err)
		access, err := env.sessions.Refresh(ctx, newClaims)
		require.NoError(t, err)

		_, err = env.sessions.Authenticate(ctx, access.Token)
		assert.NoError(t, err)
	})

	t.Run("role changes apply on refresh", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		u.Role = models.RoleAdmin
		_, err = env.store.UpdateUser(ctx, u)
		require.NoError(t, err)

		claims, err := env.sessions.ParseRefreshToken(ctx, pair.Refresh.Token)
		require.NoError(t, err)
		access, err := env.sessions.Refresh(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, access.ExpiresAt.Sub(env.clock.Now()))

		parsed, err := env.sessions.Authenticate(ctx, access.Token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, parsed.Role)
	})

	t.Run("deleted user", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		require.NoError(t, env.store.DeleteUser(ctx, u.ID))

		claims, err := env.sessions.ParseRefreshToken(ctx, pair.Refresh.Token)
		require.NoError(t, err)
		_, err = env.sessions.Refresh(ctx, claims)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		_, err = env.sessions.ParseRefreshToken(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestSessionService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes the access token and ends the refresh session", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)
		require.NoError(t, env.sessions.Logout(ctx, claims))

		revoked, err := env.store.IsRevoked(ctx, pair.Access.JTI)
		require.NoError(t, err)
		assert.True(t, revoked)

		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		assert.InDelta(t, 1, env.counter(t, "shopapi_revoked_requests_total"), 0)

		refreshClaims, err := env.sessions.ParseRefreshToken(ctx, pair.Refresh.Token)
		require.NoError(t, err)
		_, err = env.sessions.Refresh(ctx, refreshClaims)
		assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
		assert.Equal(t, 0, env.store.RefreshTokenCount(u.ID))
	})

	t.Run("ends every access token of the session", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		refreshClaims, err := env.sessions.ParseRefreshToken(ctx, pair.Refresh.Token)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
		refreshed, err := env.sessions.Refresh(ctx, refreshClaims)
		require.NoError(t, err)

		claims, err := env.sessions.Authenticate(ctx, refreshed.Token)
		require.NoError(t, err)
		assert.Equal(t, pair.Refresh.JTI, claims.SessionID)
		require.NoError(t, env.sessions.Logout(ctx, claims))

		_, err = env.sessions.Authenticate(ctx, refreshed.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)

		env.clock.Advance(23 * time.Hour)
		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("other sessions of the user are left alone", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		first, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		second, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		require.NotEqual(t, first.Refresh.JTI, second.Refresh.JTI)

		claims, err := env.sessions.Authenticate(ctx, second.Access.Token)
		require.NoError(t, err)
		require.NoError(t, env.sessions.Logout(ctx, claims))

		_, err = env.sessions.Authenticate(ctx, first.Access.Token)
		assert.NoError(t, err)
	})

	t.Run("revoked token stays rejected until it expires", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "admin@example.com", "password123", models.RoleAdmin, true)
		pair, err := env.sessions.Login(ctx, "admin@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)
		require.NoError(t, env.sessions.Logout(ctx, claims))

		env.clock.Advance(15*time.Minute + util.JWTLeeWay/2)
		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)

		env.clock.Advance(util.JWTLeeWay)
		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("second logout is not an error", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.tokens.ParseToken(pair.Access.Token, models.TokenTypeAccess)
		require.NoError(t, err)

		require.NoError(t, env.sessions.Logout(ctx, claims))
		require.NoError(t, env.sessions.Logout(ctx, claims))
		require.NoError(t, env.sessions.RevokeAccessToken(ctx, claims))
	})

	t.Run("ledger failure leaves the refresh session intact", func(t *testing.T) {
		env := newTestEnv(t, withLedger(func(l storage.RevocationLedger) storage.RevocationLedger {
			return failingLedger{RevocationLedger: l}
		}))
		u := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)

		err = env.sessions.Logout(ctx, claims)
		assert.ErrorIs(t, err, errStoreDown)
		assert.Equal(t, 1, env.store.RefreshTokenCount(u.ID))

		refreshClaims, err := env.sessions.ParseRefreshToken(ctx, pair.Refresh.Token)
		require.NoError(t, err)
		_, err = env.sessions.Refresh(ctx, refreshClaims)
		assert.NoError(t, err)
	})

	t.Run("refresh delete failure still logs out", func(t *testing.T) {
		env := newTestEnv(t, withRefreshStore(func(s storage.RefreshTokenStore) storage.RefreshTokenStore {
			return failingRefreshStore{RefreshTokenStore: s, failDelete: true}
		}))
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)

		require.NoError(t, env.sessions.Logout(ctx, claims))
		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestSessionService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger read failure rejects the request", func(t *testing.T) {
		env := newTestEnv(t, withLedger(func(l storage.RevocationLedger) storage.RevocationLedger {
			return failingLedger{RevocationLedger: l, failReads: true}
		}))
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, errStoreDown)
	})

	t.Run("refresh token is not accepted by the gate", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		_, err = env.sessions.Authenticate(ctx, pair.Refresh.Token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestSessionService_OAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert creates a confirmed google customer", func(t *testing.T) {
		env := newTestEnv(t)
		u, err := env.sessions.UpsertOAuthUser(ctx, models.OAuthIdentity{Email: "New@Example.com", EmailVerified: true})
		require.NoError(t, err)
		assert.True(t, u.Confirmed)
		assert.Equal(t, models.AuthProviderGoogle, u.AuthProvider)
		assert.Equal(t, models.RoleCustomer, u.Role)
		assert.Equal(t, "new", u.Name)
		assert.Equal(t, 0, env.store.RefreshTokenCount(u.ID))
	})

	t.Run("upsert confirms an existing account and keeps its role", func(t *testing.T) {
		env := newTestEnv(t)
		existing := env.createUser(t, "staff@example.com", "password123", models.RoleStaff, false)

		u, err := env.sessions.UpsertOAuthUser(ctx, models.OAuthIdentity{Email: "staff@example.com", Name: "Staff", EmailVerified: true})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, u.ID)
		assert.True(t, u.Confirmed)
		assert.Equal(t, models.RoleStaff, u.Role)
	})

	t.Run("unverified email", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.LoginViaOAuth(ctx, models.OAuthIdentity{Email: "x@example.com"})
		assert.ErrorIs(t, err, ErrOAuthEmailUnverified)

		_, err = env.sessions.UpsertOAuthUser(ctx, models.OAuthIdentity{EmailVerified: true})
		assert.ErrorIs(t, err, ErrOAuthEmailUnverified)
	})

	t.Run("login starts a session like password login", func(t *testing.T) {
		env := newTestEnv(t)
		pair, err := env.sessions.LoginViaOAuth(ctx, models.OAuthIdentity{Email: "g@example.com", Name: "G", EmailVerified: true})
		require.NoError(t, err)
		assert.Equal(t, 1, env.store.RefreshTokenCount(pair.UserID))
		assert.Equal(t, 24*time.Hour, pair.Access.ExpiresAt.Sub(env.clock.Now()))
		assert.InDelta(t, 1, env.counter(t, "shopapi_logins_total", "method", "google", "result", "success"), 0)
	})
}
