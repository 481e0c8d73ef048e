package identitysvc

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/examsurveil/backend/core"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	jwksRefreshInterval  = time.Hour
	jwksRefreshRateLimit = 5 * time.Minute
	jwksRefreshTimeout   = 10 * time.Second
)

// cognitoClaims holds the claims of Cognito ID and access tokens.
type cognitoClaims struct {
	jwt.RegisteredClaims
	TokenUse        string `json:"token_use"`
	ClientID        string `json:"client_id"`
	Email           string `json:"email"`
	CognitoUsername string `json:"cognito:username"`
	Username        string `json:"username"`
}

// identity returns the email when present, else the best available username.
func (c cognitoClaims) identity() string {
	for _, v := range []string{c.Email, c.CognitoUsername, c.Username, c.Subject} {
		if v = strings.TrimSpace(v); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// JWKSVerifier verifies RS256 tokens issued by a Cognito user pool.
// The key set is refreshed hourly and on unknown key IDs, at most once per rate limit window.
type JWKSVerifier struct {
	issuer   string
	clientID string
	jwks     *keyfunc.JWKS
	parser   *jwt.Parser
}

func NewJWKSVerifier(ctx context.Context, region, poolID, clientID string, logger core.Logger) (*JWKSVerifier, error) {
	return NewJWKSVerifierWithIssuer(
		ctx,
		fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID),
		clientID,
		&http.Client{Timeout: jwksRefreshTimeout},
		logger,
	)
}

// NewJWKSVerifierWithIssuer fetches the key set of issuer; the background refresh stops with ctx or Close.
func NewJWKSVerifierWithIssuer(ctx context.Context, issuer, clientID string, client *http.Client, logger core.Logger) (*JWKSVerifier, error) {
	issuer = strings.TrimRight(issuer, "/")
	jwks, err := keyfunc.Get(issuer+"/.well-known/jwks.json", keyfunc.Options{
		Ctx:    ctx,
		Client: client,
		RefreshErrorHandler: func(err error) {
			logger.Error("refreshing user pool keys: "+err.Error(), err)
		},
		RefreshInterval:   jwksRefreshInterval,
		RefreshRateLimit:  jwksRefreshRateLimit,
		RefreshTimeout:    jwksRefreshTimeout,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching user pool keys")
	}
	return &JWKSVerifier{
		issuer:   issuer,
		clientID: clientID,
		jwks:     jwks,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})),
	}, nil
}

// Verify checks tokenStr and returns the identity (email or username) it was issued to.
func (v *JWKSVerifier) Verify(_ context.Context, tokenStr string) (string, error) {
	claims := new(cognitoClaims)
	if _, err := v.parser.ParseWithClaims(tokenStr, claims, v.jwks.Keyfunc); err != nil {
		return "", errors.Wrap(ErrInvalidToken, err.Error())
	}

	if !claims.VerifyIssuer(v.issuer, true) {
		return "", errors.Wrap(ErrInvalidToken, "issuer mismatch")
	}
	switch claims.TokenUse {
	case "access":
		if claims.ClientID != v.clientID {
			return "", errors.Wrap(ErrInvalidToken, "client mismatch")
		}
	default:
		if !claims.VerifyAudience(v.clientID, true) {
			return "", errors.Wrap(ErrInvalidToken, "audience mismatch")
		}
	}

	identity := claims.identity()
	if identity == "" {
		return "", errors.Wrap(ErrInvalidToken, "no subject")
	}
	return identity, nil
}

// Close stops the background key refresh.
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}
