package api

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/service"
	"github.com/rryowa/shopapi/internal/util"
)

const bearerPrefix = "Bearer "

// Authenticator verifies a raw bearer token.
type Authenticator func(ctx context.Context, raw string) (*models.Claims, error)

// BearerAuthMiddleware puts the verified claims and the raw token into the echo context.
func BearerAuthMiddleware(authenticate Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimSpace(header[len(bearerPrefix):])

			claims, err := authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}

			c.Set(models.MwClaimsKey, claims)
			c.Set(models.MwRawTokenKey, raw)
			return next(c)
		}
	}
}

// RequireRole must run after BearerAuthMiddleware.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(models.MwClaimsKey).(*models.Claims)
			if !ok || !slices.Contains(roles, claims.Role) {
				return service.ErrNotAuthorized
			}
			return next(c)
		}
	}
}

func RateLimitMiddleware(cfg *util.RateLimiterConfig) echo.MiddlewareFunc {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 1
	}

	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Every(cfg.Interval / time.Duration(limit)),
		Burst:     limit,
		ExpiresIn: cfg.BlockTime,
	})

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client").SetInternal(err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests").SetInternal(err)
		},
	})
}

func RequestIDMiddleware() echo.MiddlewareFunc {
	return echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return ulid.Make().String()
		},
	})
}

func GetLoggerMiddlewareConfig(log *zap.SugaredLogger) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogRequestID: true,
		LogLatency:   true,
		HandleError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"request_id", v.RequestID,
				"latency", v.Latency,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
				log.Errorw("Request", fields...)
			} else {
				log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
