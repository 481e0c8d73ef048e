package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/meeting"
)

var errRecordingsDisabled = echo.NewHTTPError(http.StatusServiceUnavailable, "Recording storage is not configured")

type meetingApi struct {
	svc      *meeting.Service
	validate *validator.Validate
}

func registerMeetingAPI(app *echo.Echo, auth, proctor echo.MiddlewareFunc, deps ServerDeps) {
	api := meetingApi{
		svc:      deps.MeetingSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	app.POST("/guest/join", api.guestJoin)

	// authed endpoints
	app.POST("/meetings", api.join, auth)
	app.POST("/meetings/:id/attendees", api.createAttendee, auth)

	sg := app.Group("/scheduled-meetings", auth)
	sg.GET("", api.query)
	sg.POST("", api.create, proctor)

	// owner endpoints
	dg := sg.Group("/:code", proctor)
	dg.GET("", api.retrieve)
	dg.PATCH("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/start", api.start)
	dg.POST("/end", api.end)
	dg.POST("/recordings/presign", api.presignRecording)
}

// Handlers

func (api *meetingApi) create(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data meeting.NewMeeting
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMeeting")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "creating meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *meetingApi) query(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	meetings, err := api.svc.ListFor(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	if meetings == nil {
		meetings = []meeting.ScheduledMeeting{}
	}
	return ctx.JSON(http.StatusOK, meetings)
}

func (api *meetingApi) retrieve(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	m, err := api.svc.GetOwned(ctx.Request().Context(), actor, ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "getting meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *meetingApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data meeting.UpdateMeeting
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMeeting")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	m, err := api.svc.Update(ctx.Request().Context(), actor, ctx.Param("code"), data)
	if err != nil {
		return errors.Wrap(err, "updating meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *meetingApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, ctx.Param("code")); err != nil {
		return errors.Wrap(err, "deleting meeting")
	}
	return ctx.JSON(http.StatusOK, okResponse{OK: true})
}

func (api *meetingApi) start(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Start(ctx.Request().Context(), actor, ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "starting meeting")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *meetingApi) end(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	m, err := api.svc.End(ctx.Request().Context(), actor, ctx.Param("code"))
	if err != nil {
		return errors.Wrap(err, "ending meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *meetingApi) presignRecording(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data meeting.PresignRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PresignRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	up, err := api.svc.PresignRecording(ctx.Request().Context(), actor, ctx.Param("code"), data)
	if err != nil {
		if errors.Cause(err) == meeting.ErrRecordingsDisabled {
			return errRecordingsDisabled
		}
		return errors.Wrap(err, "presigning recording")
	}
	return ctx.JSON(http.StatusOK, up)
}

func (api *meetingApi) join(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data meeting.JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Join(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "joining meeting")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *meetingApi) createAttendee(ctx echo.Context) error {
	var data meeting.AttendeeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendeeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.CreateAttendee(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating attendee")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *meetingApi) guestJoin(ctx echo.Context) error {
	var data meeting.GuestJoinRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuestJoinRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.GuestJoin(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "guest joining meeting")
	}
	return ctx.JSON(http.StatusOK, res)
}
