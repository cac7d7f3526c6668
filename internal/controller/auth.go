package controller

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/util"
)

const (
	oauthStateBytes  = 24
	oauthStateMaxAge = 10 * time.Minute
	oauthCookiePath  = "/api/auth"
)

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	pair, err := c.sessionService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.TokenPairResponse{
		Msg:          "login successful",
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
	})
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	access, err := c.sessionService.Refresh(ctx.Request().Context(), claims)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.AccessTokenResponse{
		Msg:         "token refreshed",
		AccessToken: access.Token,
	})
}

// (POST /api/auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	if err := c.sessionService.Logout(ctx.Request().Context(), claims); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.MessageResponse{Msg: "logged out"})
}

// (GET /api/auth/me).
func (c *Controller) Me(ctx echo.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	user, err := c.userService.GetUser(ctx.Request().Context(), claims, claims.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, user)
}

// (GET /api/auth/login/google).
func (c *Controller) GoogleLogin(ctx echo.Context) error {
	if !c.oauthProvider.Enabled() {
		return echo.NewHTTPError(http.StatusNotFound, "google login is not configured")
	}

	state, err := newOAuthState()
	if err != nil {
		return err
	}

	ctx.SetCookie(&http.Cookie{
		Name:     models.OAuthStateName,
		Value:    state,
		Path:     oauthCookiePath,
		MaxAge:   int(oauthStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.Redirect(http.StatusFound, c.oauthProvider.AuthCodeURL(state))
}

// (GET /api/auth/google).
func (c *Controller) GoogleCallback(ctx echo.Context, params GoogleCallbackParams) error {
	if !c.oauthProvider.Enabled() {
		return echo.NewHTTPError(http.StatusNotFound, "google login is not configured")
	}

	cookie, err := ctx.Cookie(models.OAuthStateName)
	if err != nil || params.State == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(params.State)) != 1 {
		return util.BadRequest("oauth state mismatch")
	}
	ctx.SetCookie(&http.Cookie{
		Name:     models.OAuthStateName,
		Path:     oauthCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secureCookies,
	})

	identity, err := c.oauthProvider.Exchange(ctx.Request().Context(), params.Code)
	if err != nil {
		c.zapLogger.Warnw("Google code exchange failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "google sign-in failed").SetInternal(err)
	}

	pair, err := c.sessionService.LoginViaOAuth(ctx.Request().Context(), *identity)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.TokenPairResponse{
		Msg:          "login successful",
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
	})
}

// (GET /api/auth/confirm/{token}).
func (c *Controller) ConfirmEmail(ctx echo.Context, token string) error {
	if err := c.userService.ConfirmEmail(ctx.Request().Context(), token); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{Msg: "email confirmed"})
}

// (POST /api/auth/confirm/resend).
func (c *Controller) ResendConfirmation(ctx echo.Context) error {
	var req models.ResendConfirmationRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	if err := c.userService.ResendConfirmation(ctx.Request().Context(), req.Email); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{
		Msg: "if the account exists and is not confirmed, a confirmation email has been sent",
	})
}

func newOAuthState() (string, error) {
	b := make([]byte, oauthStateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
