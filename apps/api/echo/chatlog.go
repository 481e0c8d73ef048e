package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/chatlog"
)

type chatLogApi struct {
	svc      *chatlog.Service
	validate *validator.Validate
}

func registerChatLogAPI(app *echo.Echo, auth, proctor echo.MiddlewareFunc, deps ServerDeps) {
	api := chatLogApi{
		svc:      deps.ChatLogSvc,
		validate: deps.Validate,
	}

	cg := app.Group("/chat-logs")
	cg.POST("", api.create)
	cg.GET("/:code", api.query, auth, proctor)
}

// Handlers

func (api *chatLogApi) create(ctx echo.Context) error {
	var data chatlog.NewChatLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChatLog")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording chat log")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *chatLogApi) query(ctx echo.Context) error {
	page := chatlog.NewPage()
	if err := ctx.Bind(&page); err != nil {
		return errors.Wrap(err, "binding to Page")
	}
	if err := page.Validate(api.validate); err != nil {
		return err
	}

	logs, err := api.svc.Query(ctx.Request().Context(), ctx.Param("code"), page)
	if err != nil {
		return errors.Wrap(err, "querying chat logs")
	}
	if logs == nil {
		logs = []chatlog.ChatLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}
