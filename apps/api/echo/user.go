package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(app *echo.Echo, auth, proctor echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:      deps.UserSvc,
		validate: deps.Validate,
	}

	app.GET("/me", api.me, auth)
	app.GET("/profile", api.profile, auth)
	app.POST("/profile", api.updateProfile, auth)

	ug := app.Group("/users", auth, proctor)
	ug.GET("", api.query)
	ug.POST("", api.invite)
	ug.PATCH("/:email", api.update)
	ug.DELETE("/:email", api.destroy)
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr.Me())
}

func (api *userApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr.Profile())
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.ProfileUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdate")
	}
	if err = data.Validate(api.validate, usr.Role); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, usr.Profile())
}

func (api *userApi) query(ctx echo.Context) error {
	ordering := newOrdering(userOrderingFields...)
	if err := ordering.Bind(ctx); err != nil {
		return err
	}

	users, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) invite(ctx echo.Context) error {
	var data user.Invitation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Invitation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Invite(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "inviting user")
	}
	return ctx.JSON(http.StatusOK, user.InvitationResult{OK: true, Username: usr.Email, Role: usr.Role})
}

func (api *userApi) update(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), actor, email, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	actor, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), actor, email); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.JSON(http.StatusOK, okResponse{OK: true})
}

// emailParam returns the URL-decoded `email` path parameter.
func emailParam(ctx echo.Context) (string, error) {
	email, err := url.PathUnescape(ctx.Param("email"))
	if err != nil {
		return "", core.NewValidationError(errors.New("email is invalid"))
	}
	return email, nil
}

type okResponse struct {
	OK bool `json:"ok"`
}
