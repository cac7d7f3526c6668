package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rryowa/shopapi/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unconfirmed customer and sends a confirmation token", func(t *testing.T) {
		env := newTestEnv(t)
		u, err := env.users.Register(ctx, models.CreateUserRequest{
			Name: "Ana", Email: " Ana@Example.com ", Password: "password123", Addresses: []string{"Main St 1"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", u.Email)
		assert.Equal(t, models.RoleCustomer, u.Role)
		assert.False(t, u.Confirmed)
		assert.Equal(t, models.AuthProviderEmail, u.AuthProvider)
		assert.NotEqual(t, "password123", u.PasswordHash)

		msg := env.notifier.last()
		assert.Equal(t, u.ID, msg.UserID)
		require.NoError(t, env.users.ConfirmEmail(ctx, msg.Token))

		_, err = env.sessions.Login(ctx, "ana@example.com", "password123")
		assert.NoError(t, err)
	})

	t.Run("protected fields are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		base := models.CreateUserRequest{Name: "Ana", Email: "ana@example.com", Password: "password123"}

		for name, req := range map[string]models.CreateUserRequest{
			"role":          withCreate(base, func(r *models.CreateUserRequest) { r.Role = ptr(models.RoleAdmin) }),
			"confirmed":     withCreate(base, func(r *models.CreateUserRequest) { r.Confirmed = ptr(true) }),
			"auth_provider": withCreate(base, func(r *models.CreateUserRequest) { r.AuthProvider = ptr("google") }),
			"created_at":    withCreate(base, func(r *models.CreateUserRequest) { r.CreatedAt = ptr("2020-01-01") }),
		} {
			_, err := env.users.Register(ctx, req)
			assert.ErrorIs(t, err, ErrForbiddenField, name)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		for name, req := range map[string]models.CreateUserRequest{
			"short password": {Name: "Ana", Email: "ana@example.com", Password: "short"},
			"bad email":      {Name: "Ana", Email: "not-an-email", Password: "password123"},
			"empty name":     {Name: " ", Email: "ana@example.com", Password: "password123"},
			"long phone":     {Name: "Ana", Email: "ana@example.com", Password: "password123", Phone: "012345678901234567890"},
		} {
			_, err := env.users.Register(ctx, req)
			assert.ErrorIs(t, err, ErrValidation, name)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

		_, err := env.users.Register(ctx, models.CreateUserRequest{Name: "Ana", Email: "ANA@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func withCreate(r models.CreateUserRequest, f func(*models.CreateUserRequest)) models.CreateUserRequest {
	f(&r)
	return r
}

func TestUserService_Access(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@example.com", "password123", models.RoleAdmin, true)
	ana := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
	bob := env.createUser(t, "bob@example.com", "password123", models.RoleCustomer, true)

	adminClaims := &models.Claims{UserID: admin.ID, Role: models.RoleAdmin}
	anaClaims := &models.Claims{UserID: ana.ID, Role: models.RoleCustomer}

	t.Run("get", func(t *testing.T) {
		_, err := env.users.GetUser(ctx, anaClaims, ana.ID)
		assert.NoError(t, err)
		_, err = env.users.GetUser(ctx, adminClaims, bob.ID)
		assert.NoError(t, err)
		_, err = env.users.GetUser(ctx, anaClaims, bob.ID)
		assert.ErrorIs(t, err, ErrNotAuthorized)
		_, err = env.users.GetUser(ctx, adminClaims, "missing")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("list", func(t *testing.T) {
		_, err := env.users.ListUsers(ctx, anaClaims, 1, 10)
		assert.ErrorIs(t, err, ErrNotAuthorized)

		page, err := env.users.ListUsers(ctx, adminClaims, 1, 2)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		page, err = env.users.ListUsers(ctx, adminClaims, 2, 2)
		require.NoError(t, err)
		assert.Len(t, page, 1)

		_, err = env.users.ListUsers(ctx, adminClaims, 0, 10)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = env.users.ListUsers(ctx, adminClaims, 1, models.MaxPerPage+1)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.createUser(t, "admin@example.com", "password123", models.RoleAdmin, true)
	ana := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)

	adminClaims := &models.Claims{UserID: admin.ID, Role: models.RoleAdmin}
	anaClaims := &models.Claims{UserID: ana.ID, Role: models.RoleCustomer}

	t.Run("self update with new password", func(t *testing.T) {
		u, err := env.users.UpdateUser(ctx, anaClaims, ana.ID, models.UpdateUserRequest{
			Name: ptr("Ana Maria"), Password: ptr("new-password"), Addresses: ptr([]string{"Main St 1"}),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Maria", u.Name)

		_, err = env.sessions.Login(ctx, "ana@example.com", "new-password")
		assert.NoError(t, err)
	})

	t.Run("immutable fields", func(t *testing.T) {
		_, err := env.users.UpdateUser(ctx, adminClaims, ana.ID, models.UpdateUserRequest{Email: ptr("x@example.com")})
		assert.ErrorIs(t, err, ErrForbiddenField)
		_, err = env.users.UpdateUser(ctx, adminClaims, ana.ID, models.UpdateUserRequest{Confirmed: ptr(false)})
		assert.ErrorIs(t, err, ErrForbiddenField)
	})

	t.Run("role changes are admin only", func(t *testing.T) {
		_, err := env.users.UpdateUser(ctx, anaClaims, ana.ID, models.UpdateUserRequest{Role: ptr(models.RoleAdmin)})
		assert.ErrorIs(t, err, ErrForbiddenField)

		u, err := env.users.UpdateUser(ctx, adminClaims, ana.ID, models.UpdateUserRequest{Role: ptr(models.RoleStaff)})
		require.NoError(t, err)
		assert.Equal(t, models.RoleStaff, u.Role)

		_, err = env.users.UpdateUser(ctx, adminClaims, ana.ID, models.UpdateUserRequest{Role: ptr(models.Role(7))})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("other users are off limits", func(t *testing.T) {
		_, err := env.users.UpdateUser(ctx, anaClaims, admin.ID, models.UpdateUserRequest{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("self delete revokes the token and the refresh session", func(t *testing.T) {
		env := newTestEnv(t)
		ana := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)

		require.NoError(t, env.users.DeleteUser(ctx, claims, ana.ID))
		assert.Equal(t, 0, env.store.RefreshTokenCount(ana.ID))

		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("admin delete ends the deleted session and keeps the admin signed in", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "admin@example.com", "password123", models.RoleAdmin, true)
		bob := env.createUser(t, "bob@example.com", "password123", models.RoleCustomer, true)
		bobPair, err := env.sessions.Login(ctx, "bob@example.com", "password123")
		require.NoError(t, err)
		bobClaims, err := env.tokens.ParseToken(bobPair.Refresh.Token, models.TokenTypeRefresh)
		require.NoError(t, err)
		bobAccess, err := env.sessions.Refresh(ctx, bobClaims)
		require.NoError(t, err)

		pair, err := env.sessions.Login(ctx, "admin@example.com", "password123")
		require.NoError(t, err)
		claims, err := env.sessions.Authenticate(ctx, pair.Access.Token)
		require.NoError(t, err)

		require.NoError(t, env.users.DeleteUser(ctx, claims, bob.ID))
		assert.Equal(t, 0, env.store.RefreshTokenCount(bob.ID))
		assert.ErrorIs(t, env.users.DeleteUser(ctx, claims, bob.ID), ErrUserNotFound)

		_, err = env.sessions.Authenticate(ctx, pair.Access.Token)
		assert.NoError(t, err)

		_, err = env.sessions.Authenticate(ctx, bobPair.Access.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		_, err = env.sessions.Authenticate(ctx, bobAccess.Token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("customers cannot delete others", func(t *testing.T) {
		env := newTestEnv(t)
		ana := env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		bob := env.createUser(t, "bob@example.com", "password123", models.RoleCustomer, true)

		err := env.users.DeleteUser(ctx, &models.Claims{UserID: ana.ID, Role: models.RoleCustomer}, bob.ID)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestUserService_Confirmation(t *testing.T) {
	ctx := context.Background()

	t.Run("resend only for unconfirmed accounts", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "done@example.com", "password123", models.RoleCustomer, true)
		pending := env.createUser(t, "pending@example.com", "password123", models.RoleCustomer, false)

		require.NoError(t, env.users.ResendConfirmation(ctx, "ghost@example.com"))
		require.NoError(t, env.users.ResendConfirmation(ctx, "done@example.com"))
		assert.Empty(t, env.notifier.msgs)

		require.NoError(t, env.users.ResendConfirmation(ctx, "pending@example.com"))
		assert.Equal(t, pending.ID, env.notifier.last().UserID)
	})

	t.Run("expired confirmation token", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.users.Register(ctx, models.CreateUserRequest{Name: "Ana", Email: "ana@example.com", Password: "password123"})
		require.NoError(t, err)

		env.clock.Advance(25 * time.Hour)
		assert.ErrorIs(t, env.users.ConfirmEmail(ctx, env.notifier.last().Token), ErrTokenExpired)
	})

	t.Run("access token cannot confirm", func(t *testing.T) {
		env := newTestEnv(t)
		env.createUser(t, "ana@example.com", "password123", models.RoleCustomer, true)
		pair, err := env.sessions.Login(ctx, "ana@example.com", "password123")
		require.NoError(t, err)

		assert.ErrorIs(t, env.users.ConfirmEmail(ctx, pair.Access.Token), ErrTokenInvalid)
	})
}
