package echoapi

import (
	"context"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
	"github.com/examsurveil/backend/core/user"
)

const (
	contextUserKey = "user"
	bearerPrefix   = "bearer "
)

// TokenVerifier verifies a bearer token and returns the identity (email) it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Claims represents the authorization claims transmitted via a locally signed JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
}

// HMACVerifier accepts HS256 tokens signed with the app secret key.
// It is used when no identity provider user pool is configured (local development, tests).
type HMACVerifier struct {
	secretKey []byte
	issuer    string
}

var _ TokenVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(conf *core.Config) *HMACVerifier {
	return &HMACVerifier{secretKey: []byte(conf.SecretKey), issuer: conf.AppName}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenStr string) (string, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil {
		return "", errors.Wrap(err, "parsing token")
	}
	if claims.Issuer != v.issuer {
		return "", errors.New("issuer mismatch")
	}
	return claims.Email, nil
}

// GenerateToken generates a signed JWT token string for email, accepted by HMACVerifier.
func GenerateToken(conf *core.Config, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   email,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func bearerToken(ctx echo.Context) (string, bool) {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(auth[len(bearerPrefix):])
	return token, token != ""
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUsrNotFoundInCtx
}
