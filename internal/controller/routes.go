package controller

import (
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/rryowa/shopapi/internal/util"
)

// ServerInterface has one method per operation of openapi.yaml. Path and query parameters
// arrive already bound.
type ServerInterface interface {
	// (GET /api/ping)
	CheckServer(ctx echo.Context) error

	// (POST /api/auth/login)
	Login(ctx echo.Context) error
	// (POST /api/auth/refresh)
	Refresh(ctx echo.Context) error
	// (POST /api/auth/logout)
	Logout(ctx echo.Context) error
	// (GET /api/auth/me)
	Me(ctx echo.Context) error
	// (GET /api/auth/login/google)
	GoogleLogin(ctx echo.Context) error
	// (GET /api/auth/google)
	GoogleCallback(ctx echo.Context, params GoogleCallbackParams) error
	// (GET /api/auth/confirm/{token})
	ConfirmEmail(ctx echo.Context, token string) error
	// (POST /api/auth/confirm/resend)
	ResendConfirmation(ctx echo.Context) error

	// (POST /api/users)
	CreateUser(ctx echo.Context) error
	// (GET /api/users)
	ListUsers(ctx echo.Context, params ListUsersParams) error
	// (GET /api/users/{id})
	GetUser(ctx echo.Context, id string) error
	// (PUT /api/users/{id})
	UpdateUser(ctx echo.Context, id string) error
	// (DELETE /api/users/{id})
	DeleteUser(ctx echo.Context, id string) error

	// (GET /api/settings)
	ListSettings(ctx echo.Context) error
	// (POST /api/settings)
	CreateSetting(ctx echo.Context) error
	// (GET /api/settings/{id})
	GetSetting(ctx echo.Context, id string) error
	// (PUT /api/settings/{id})
	UpdateSetting(ctx echo.Context, id string) error
	// (DELETE /api/settings/{id})
	DeleteSetting(ctx echo.Context, id string) error
}

type GoogleCallbackParams struct {
	Code  string `form:"code" json:"code"`
	State string `form:"state" json:"state"`
}

type ListUsersParams struct {
	Page    *int `form:"page,omitempty" json:"page,omitempty"`
	PerPage *int `form:"per-page,omitempty" json:"per-page,omitempty"`
}

// RouteMiddlewares are supplied by the server so handlers stay unaware of how tokens are checked.
type RouteMiddlewares struct {
	Access    echo.MiddlewareFunc
	Refresh   echo.MiddlewareFunc
	Admin     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// ServerInterfaceWrapper binds request parameters before calling the handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GoogleCallback(ctx echo.Context) error {
	var params GoogleCallbackParams

	if err := runtime.BindQueryParameter("form", true, true, "code", ctx.QueryParams(), &params.Code); err != nil {
		return util.BadRequest("invalid format for parameter code: %s", err)
	}
	if err := runtime.BindQueryParameter("form", true, true, "state", ctx.QueryParams(), &params.State); err != nil {
		return util.BadRequest("invalid format for parameter state: %s", err)
	}

	return w.Handler.GoogleCallback(ctx, params)
}

func (w *ServerInterfaceWrapper) ConfirmEmail(ctx echo.Context) error {
	token, err := bindPathParam(ctx, "token")
	if err != nil {
		return err
	}
	return w.Handler.ConfirmEmail(ctx, token)
}

func (w *ServerInterfaceWrapper) ListUsers(ctx echo.Context) error {
	var params ListUsersParams

	if err := runtime.BindQueryParameter("form", true, false, "page", ctx.QueryParams(), &params.Page); err != nil {
		return util.BadRequest("invalid format for parameter page: %s", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "per-page", ctx.QueryParams(), &params.PerPage); err != nil {
		return util.BadRequest("invalid format for parameter per-page: %s", err)
	}

	return w.Handler.ListUsers(ctx, params)
}

func (w *ServerInterfaceWrapper) GetUser(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.GetUser)
}

func (w *ServerInterfaceWrapper) UpdateUser(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.UpdateUser)
}

func (w *ServerInterfaceWrapper) DeleteUser(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.DeleteUser)
}

func (w *ServerInterfaceWrapper) GetSetting(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.GetSetting)
}

func (w *ServerInterfaceWrapper) UpdateSetting(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.UpdateSetting)
}

func (w *ServerInterfaceWrapper) DeleteSetting(ctx echo.Context) error {
	return w.withID(ctx, w.Handler.DeleteSetting)
}

func (w *ServerInterfaceWrapper) withID(ctx echo.Context, h func(echo.Context, string) error) error {
	id, err := bindPathParam(ctx, "id")
	if err != nil {
		return err
	}
	return h(ctx, id)
}

func bindPathParam(ctx echo.Context, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, ctx.Param(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", util.BadRequest("invalid format for parameter %s: %s", name, err)
	}
	return value, nil
}

// RegisterHandlers mounts every operation of openapi.yaml on router, which must be the /api group.
func RegisterHandlers(router EchoRouter, si ServerInterface, mw RouteMiddlewares) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.GET("/ping", si.CheckServer)

	router.POST("/auth/login", si.Login, mw.RateLimit)
	router.POST("/auth/refresh", si.Refresh, mw.RateLimit, mw.Refresh)
	router.POST("/auth/logout", si.Logout, mw.Access)
	router.GET("/auth/me", si.Me, mw.Access)
	router.GET("/auth/login/google", si.GoogleLogin)
	router.GET("/auth/google", w.GoogleCallback, mw.RateLimit)
	router.GET("/auth/confirm/:token", w.ConfirmEmail)
	router.POST("/auth/confirm/resend", si.ResendConfirmation, mw.RateLimit)

	router.POST("/users", si.CreateUser, mw.RateLimit)
	router.GET("/users", w.ListUsers, mw.Access, mw.Admin)
	router.GET("/users/:id", w.GetUser, mw.Access)
	router.PUT("/users/:id", w.UpdateUser, mw.Access)
	router.DELETE("/users/:id", w.DeleteUser, mw.Access)

	router.GET("/settings", si.ListSettings, mw.Access, mw.Admin)
	router.POST("/settings", si.CreateSetting, mw.Access, mw.Admin)
	router.GET("/settings/:id", w.GetSetting, mw.Access, mw.Admin)
	router.PUT("/settings/:id", w.UpdateSetting, mw.Access, mw.Admin)
	router.DELETE("/settings/:id", w.DeleteSetting, mw.Access, mw.Admin)
}
