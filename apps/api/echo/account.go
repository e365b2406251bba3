package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/account"
)

type (
	accountApi struct {
		svc *account.Service
	}

	DeleteAccountRequest struct {
		Confirm string `json:"confirmacao"`
	}
)

func registerAccountAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *account.Service) {
	api := accountApi{svc: svc}

	ag := g.Group("/account", authed...)
	ag.GET("", api.me)
	ag.POST("/logout", api.logout)
	ag.POST("/password", api.changePassword)
	ag.DELETE("", api.destroy)
}

func (api *accountApi) me(ctx echo.Context) error {
	usr, err := api.svc.Me(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting current user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *accountApi) logout(ctx echo.Context) error {
	if err := api.svc.Logout(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	var data account.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) destroy(ctx echo.Context) error {
	var data DeleteAccountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteAccountRequest")
	}
	if err := api.svc.DeleteAccount(ctx.Request().Context(), data.Confirm); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	return ctx.NoContent(http.StatusNoContent)
}
