package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/storage"
	"github.com/rryowa/shopapi/internal/util"
)

var ErrInvalidSigningMethod = errors.New("invalid signing method")

type TokenService struct {
	jwtSecretKey    []byte
	issuer          string
	confirmationTTL time.Duration
	refreshStore    storage.RefreshTokenStore
	now             func() time.Time
}

func NewTokenService(cfg *util.TokenConfig, refreshStore storage.RefreshTokenStore) *TokenService {
	return &TokenService{
		jwtSecretKey:    cfg.JwtSecretKey,
		issuer:          cfg.Issuer,
		confirmationTTL: cfg.ConfirmationTTL,
		refreshStore:    refreshStore,
		now:             time.Now,
	}
}

// WithClock replaces the clock used for issuing and validating tokens.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	ts.now = now
	return ts
}

type jwtClaims struct {
	Role      models.Role      `json:"role"`
	Type      models.TokenType `json:"type"`
	SessionID string           `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs an access token whose lifetime depends on the user's role.
// sessionID is the jti of the refresh token that started the session.
func (ts *TokenService) IssueAccessToken(user *models.User, sessionID string) (models.IssuedToken, error) {
	if sessionID == "" {
		return models.IssuedToken{}, errors.New("access token needs a session id")
	}
	return ts.sign(user, models.TokenTypeAccess, sessionID, PolicyForRole(user.Role).Access)
}

// IssueRefreshToken signs a refresh token and stores it as the user's only refresh record.
// Nothing is returned unless the record was written.
func (ts *TokenService) IssueRefreshToken(ctx context.Context, user *models.User) (models.IssuedToken, error) {
	tok, err := ts.sign(user, models.TokenTypeRefresh, "", PolicyForRole(user.Role).Refresh)
	if err != nil {
		return models.IssuedToken{}, err
	}

	record := models.RefreshTokenRecord{UserID: user.ID, JTI: tok.JTI, ExpiresAt: tok.ExpiresAt}
	if err := ts.refreshStore.PutRefreshToken(ctx, record); err != nil {
		return models.IssuedToken{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return tok, nil
}

func (ts *TokenService) IssueEmailConfirmationToken(user *models.User) (models.IssuedToken, error) {
	return ts.sign(user, models.TokenTypeConfirm, "", ts.confirmationTTL)
}

func (ts *TokenService) sign(user *models.User, typ models.TokenType, sessionID string, ttl time.Duration) (models.IssuedToken, error) {
	now := ts.now().Truncate(jwt.TimePrecision)
	jti := uuid.NewString()
	exp := now.Add(ttl)

	claims := &jwtClaims{
		Role:      user.Role,
		Type:      typ,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    ts.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.jwtSecretKey)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("signed string: %w", err)
	}

	return models.IssuedToken{Token: signedToken, JTI: jti, ExpiresAt: exp}, nil
}

// ParseToken verifies signature, issuer and expiry and checks that the token has the wanted type.
func (ts *TokenService) ParseToken(raw string, want models.TokenType) (*models.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(util.JWTLeeWay),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(ts.issuer),
		jwt.WithTimeFunc(ts.now),
	}

	parsedToken, err := jwt.ParseWithClaims(
		raw,
		&jwtClaims{},
		func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.jwtSecretKey, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := parsedToken.Claims.(*jwtClaims)
	if !ok || !parsedToken.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, want, claims.Type)
	}
	if want == models.TokenTypeAccess && claims.SessionID == "" {
		return nil, fmt.Errorf("%w: access token without session", ErrTokenInvalid)
	}

	out := &models.Claims{
		UserID:    claims.Subject,
		Role:      claims.Role,
		JTI:       claims.ID,
		SessionID: claims.SessionID,
		Type:      claims.Type,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}
