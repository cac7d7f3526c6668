package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/service"
)

var errNoClaims = errors.New("request is not authenticated")

// OAuthProvider is the external identity provider used for social login.
type OAuthProvider interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.OAuthIdentity, error)
}

var _ ServerInterface = (*Controller)(nil)

type Controller struct {
	zapLogger      *zap.SugaredLogger
	sessionService *service.SessionService
	userService    *service.UserService
	settingService *service.SettingService
	oauthProvider  OAuthProvider
	secureCookies  bool
}

func NewController(
	logger *zap.SugaredLogger,
	sessionService *service.SessionService,
	userService *service.UserService,
	settingService *service.SettingService,
	oauthProvider OAuthProvider,
) *Controller {
	return &Controller{
		zapLogger:      logger,
		sessionService: sessionService,
		userService:    userService,
		settingService: settingService,
		oauthProvider:  oauthProvider,
	}
}

// WithSecureCookies marks the OAuth state cookie Secure. Enable it behind TLS.
func (c *Controller) WithSecureCookies(secure bool) *Controller {
	c.secureCookies = secure
	return c
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

func claimsFrom(ctx echo.Context) (*models.Claims, error) {
	claims, ok := ctx.Get(models.MwClaimsKey).(*models.Claims)
	if !ok || claims == nil {
		return nil, errNoClaims
	}
	return claims, nil
}
