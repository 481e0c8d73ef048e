package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(app *echo.Echo, auth, proctor echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:      deps.AttendanceSvc,
		validate: deps.Validate,
	}

	// presence is reported without credentials: leave is sent by a page-unload beacon
	ag := app.Group("/attendance")
	ag.POST("/join", api.join)
	ag.POST("/leave", api.leave)
	ag.GET("/:code", api.query, auth, proctor)
}

// Handlers

func (api *attendanceApi) join(ctx echo.Context) error {
	var data attendance.JoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Join(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "joining meeting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) leave(ctx echo.Context) error {
	var data attendance.LeaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LeaveRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Leave(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "leaving meeting")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	sessions, err := api.svc.Query(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}
