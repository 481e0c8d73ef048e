package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core/user"
)

// authMiddleware verifies the bearer token and loads the local User, creating it on first sight.
func authMiddleware(verifier TokenVerifier, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx)
			if !ok {
				return errUnauthorized
			}
			reqCtx := ctx.Request().Context()

			identity, err := verifier.Verify(reqCtx, token)
			if err != nil || identity == "" {
				return errInvalidToken
			}

			usr, err := svc.Resolve(reqCtx, identity)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errInvalidToken
				}
				return errors.Wrap(err, "resolving user")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func proctorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsProctor() {
				return errProctorRequired
			}
			return next(ctx)
		}
	}
}
