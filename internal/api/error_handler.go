package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/shopapi/internal/controller"
	"github.com/rryowa/shopapi/internal/service"
	"github.com/rryowa/shopapi/internal/util"
)

type errorMapping struct {
	target error
	status int
	// detailed answers with the full wrapped message instead of the sentinel text.
	detailed bool
}

//nolint:gochecknoglobals // read-only lookup table
var errorMappings = []errorMapping{
	{target: service.ErrTokenRevoked, status: http.StatusUnauthorized},
	{target: service.ErrTokenExpired, status: http.StatusUnauthorized},
	{target: service.ErrTokenInvalid, status: http.StatusUnauthorized},
	{target: service.ErrRefreshTokenNotFound, status: http.StatusUnauthorized},
	{target: service.ErrInvalidCredentials, status: http.StatusUnauthorized},
	{target: service.ErrNotConfirmed, status: http.StatusForbidden},
	{target: service.ErrNotAuthorized, status: http.StatusForbidden},
	{target: service.ErrOAuthEmailUnverified, status: http.StatusForbidden},
	{target: service.ErrForbiddenField, status: http.StatusForbidden, detailed: true},
	{target: service.ErrUserNotFound, status: http.StatusNotFound},
	{target: service.ErrEmailTaken, status: http.StatusConflict},
	{target: service.ErrSettingNotFound, status: http.StatusNotFound},
	{target: service.ErrSettingExists, status: http.StatusConflict},
	{target: service.ErrValidation, status: http.StatusBadRequest, detailed: true},
}

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, reason := resolveError(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
			reason = "internal server error"
		}

		if err := c.JSON(status, controller.ErrorResponse{Reason: reason}); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func resolveError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.detailed {
				return m.status, err.Error()
			}
			return m.status, m.target.Error()
		}
	}

	var respErr util.MyResponseError
	if errors.As(err, &respErr) {
		return respErr.Status, respErr.Msg
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}

	return http.StatusInternalServerError, ""
}
