package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/util"
)

// (GET /api/settings).
func (c *Controller) ListSettings(ctx echo.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	settings, err := c.settingService.ListSettings(ctx.Request().Context(), claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.SettingListResponse{Settings: settings})
}

// (POST /api/settings).
func (c *Controller) CreateSetting(ctx echo.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	var req models.SettingRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	setting, err := c.settingService.CreateSetting(ctx.Request().Context(), claims, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, setting)
}

// (GET /api/settings/{id}).
func (c *Controller) GetSetting(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	setting, err := c.settingService.GetSetting(ctx.Request().Context(), claims, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, setting)
}

// (PUT /api/settings/{id}).
func (c *Controller) UpdateSetting(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	var req models.SettingRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	setting, err := c.settingService.UpdateSetting(ctx.Request().Context(), claims, id, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, setting)
}

// (DELETE /api/settings/{id}).
func (c *Controller) DeleteSetting(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	if err := c.settingService.DeleteSetting(ctx.Request().Context(), claims, id); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{Msg: "setting deleted"})
}
