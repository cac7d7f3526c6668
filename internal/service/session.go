package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/metrics"
	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
	"github.com/rryowa/shopapi/internal/util"
)

// SessionService drives a session from anonymous through authenticated to revoked.
type SessionService struct {
	users   storage.UserRepository
	refresh storage.RefreshTokenStore
	ledger  storage.RevocationLedger
	tokens  *TokenService
	hasher  *PasswordHasher
	metrics *metrics.Collector
	log     *zap.SugaredLogger
}

func NewSessionService(
	users storage.UserRepository,
	refresh storage.RefreshTokenStore,
	ledger storage.RevocationLedger,
	tokens *TokenService,
	hasher *PasswordHasher,
	collector *metrics.Collector,
	log *zap.SugaredLogger,
) *SessionService {
	return &SessionService{
		users:   users,
		refresh: refresh,
		ledger:  ledger,
		tokens:  tokens,
		hasher:  hasher,
		metrics: collector,
		log:     log,
	}
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	pair, err := s.login(ctx, email, password)
	s.metrics.ObserveLogin(metrics.MethodPassword, resultLabel(err))
	return pair, err
}

func (s *SessionService) login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify("", password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}

	return s.StartSession(ctx, user)
}

// StartSession issues a persisted refresh token and an access token for an already
// authenticated user. The refresh record replaces any earlier one and its jti becomes the
// session id carried by every access token of the session.
func (s *SessionService) StartSession(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	refresh, err := s.tokens.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(user, refresh.JTI)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.log.Infow("Session started", "userID", user.ID, "role", user.Role, "jti", access.JTI)
	return &models.TokenPair{UserID: user.ID, Access: access, Refresh: refresh}, nil
}

// UpsertOAuthUser records the identity vouched for by the provider as a confirmed account.
func (s *SessionService) UpsertOAuthUser(ctx context.Context, identity models.OAuthIdentity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" || !identity.EmailVerified {
		return nil, ErrOAuthEmailUnverified
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	user, err := s.users.UpsertUserByEmail(ctx, email, models.UserUpsert{
		Name:         name,
		AuthProvider: models.AuthProviderGoogle,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert oauth user: %w", err)
	}
	return user, nil
}

func (s *SessionService) LoginViaOAuth(ctx context.Context, identity models.OAuthIdentity) (*models.TokenPair, error) {
	user, err := s.UpsertOAuthUser(ctx, identity)
	if err != nil {
		s.metrics.ObserveLogin(metrics.MethodGoogle, resultLabel(err))
		return nil, err
	}

	pair, err := s.StartSession(ctx, user)
	s.metrics.ObserveLogin(metrics.MethodGoogle, resultLabel(err))
	return pair, err
}

// Refresh mints a new access token when the presented refresh token is the user's current one.
// The user is reloaded so that role changes apply immediately.
func (s *SessionService) Refresh(ctx context.Context, claims *models.Claims) (models.IssuedToken, error) {
	tok, err := s.doRefresh(ctx, claims)
	s.metrics.ObserveRefresh(resultLabel(err))
	return tok, err
}

func (s *SessionService) doRefresh(ctx context.Context, claims *models.Claims) (models.IssuedToken, error) {
	record, err := s.refresh.GetRefreshToken(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.IssuedToken{}, ErrRefreshTokenNotFound
		}
		return models.IssuedToken{}, fmt.Errorf("get refresh token: %w", err)
	}
	if record.JTI != claims.JTI {
		return models.IssuedToken{}, ErrRefreshTokenNotFound
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.IssuedToken{}, ErrRefreshTokenNotFound
		}
		return models.IssuedToken{}, fmt.Errorf("get user: %w", err)
	}

	access, err := s.tokens.IssueAccessToken(user, claims.JTI)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Logout revokes the session and the presented access token, then drops the refresh record.
// Revocation is the commit point: once it succeeds the logout succeeds.
func (s *SessionService) Logout(ctx context.Context, claims *models.Claims) error {
	err := s.RevokeSession(ctx, claims.SessionID)
	if err == nil {
		err = s.RevokeAccessToken(ctx, claims)
	}
	if err != nil {
		s.metrics.ObserveLogout(resultLabel(err))
		return fmt.Errorf("logout: %w", err)
	}

	if err := s.refresh.DeleteRefreshToken(ctx, claims.UserID); err != nil {
		s.log.Warnw("Failed to delete refresh token after revocation", "userID", claims.UserID, "error", err)
	}

	s.metrics.ObserveLogout(resultLabel(nil))
	s.log.Infow("Session revoked", "userID", claims.UserID, "jti", claims.JTI)
	return nil
}

// RevokeAccessToken adds the token to the revocation ledger. Revoking twice is not an error.
func (s *SessionService) RevokeAccessToken(ctx context.Context, claims *models.Claims) error {
	// The gate accepts a token until exp plus leeway, so the entry has to live that long.
	return s.revoke(ctx, models.RevokedToken{JTI: claims.JTI, Exp: claims.ExpiresAt.Add(util.JWTLeeWay)})
}

// RevokeSession rejects every access token minted for the session, including the ones
// issued later by refresh. The entry outlives any token the session could still hold.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	exp := s.tokens.now().Add(SessionLifetime() + util.JWTLeeWay)
	return s.revoke(ctx, models.RevokedToken{JTI: sessionID, Exp: exp})
}

func (s *SessionService) revoke(ctx context.Context, entry models.RevokedToken) error {
	err := s.ledger.Revoke(ctx, entry)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrDuplicateKey):
		s.log.Debugw("Token already revoked", "jti", entry.JTI)
		return nil
	case errors.Is(err, models.ErrExpInPast):
		// Already unusable.
		return nil
	default:
		return fmt.Errorf("revoke token: %w", err)
	}
}

// Authenticate is the request gate: the token must verify and neither the token nor its
// session may be revoked. A ledger failure rejects the request.
func (s *SessionService) Authenticate(ctx context.Context, raw string) (*models.Claims, error) {
	claims, err := s.tokens.ParseToken(raw, models.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	for _, id := range []string{claims.JTI, claims.SessionID} {
		revoked, err := s.ledger.IsRevoked(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			s.metrics.IncRevokedRequest()
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

func (s *SessionService) ParseRefreshToken(_ context.Context, raw string) (*models.Claims, error) {
	return s.tokens.ParseToken(raw, models.TokenTypeRefresh)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrNotConfirmed):
		return "not_confirmed"
	case errors.Is(err, ErrRefreshTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrOAuthEmailUnverified):
		return "unverified"
	default:
		return "error"
	}
}
