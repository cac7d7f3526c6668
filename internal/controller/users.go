package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rryowa/shopapi/internal/models"
	"github.com/rryowa/shopapi/internal/util"
)

// (POST /api/users).
func (c *Controller) CreateUser(ctx echo.Context) error {
	var req models.CreateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	user, err := c.userService.Register(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, user)
}

// (GET /api/users).
func (c *Controller) ListUsers(ctx echo.Context, params ListUsersParams) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	page, perPage := models.DefaultPage, models.DefaultPerPage
	if params.Page != nil {
		page = *params.Page
	}
	if params.PerPage != nil {
		perPage = *params.PerPage
	}

	users, err := c.userService.ListUsers(ctx.Request().Context(), claims, page, perPage)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.UserListResponse{Users: users, Page: page, PerPage: perPage})
}

// (GET /api/users/{id}).
func (c *Controller) GetUser(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	user, err := c.userService.GetUser(ctx.Request().Context(), claims, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, user)
}

// (PUT /api/users/{id}).
func (c *Controller) UpdateUser(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	var req models.UpdateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return util.BadRequest("invalid request body")
	}

	user, err := c.userService.UpdateUser(ctx.Request().Context(), claims, id, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, user)
}

// (DELETE /api/users/{id}).
func (c *Controller) DeleteUser(ctx echo.Context, id string) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}

	if err := c.userService.DeleteUser(ctx.Request().Context(), claims, id); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, models.MessageResponse{Msg: "user deleted"})
}
