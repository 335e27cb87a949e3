package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"wmscore/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const tokenContextKey = "user"

// Claims carries the caller's numeric user id in sub and their warehouse role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWKS fetches the signing keys published at url and keeps them fresh.
func NewJWKS(url string) (*keyfunc.JWKS, error) {
	return keyfunc.Get(url, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Warn().Err(err).Str("jwks_url", url).Msg("failed to refresh JWKS")
		},
	})
}

// JWTMiddleware validates the bearer token and stores the caller's identity on
// the request context. Tokens are checked against jwks when it is non-nil,
// otherwise against the HMAC secret.
func JWTMiddleware(secret string, jwks *keyfunc.JWKS) echo.MiddlewareFunc {
	cfg := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	}
	if jwks != nil {
		cfg.KeyFunc = jwks.Keyfunc
	} else {
		cfg.SigningKey = []byte(secret)
	}
	authenticate := echojwt.WithConfig(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return authenticate(func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			claims, ok := token.Claims.(*Claims)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || userID <= 0 {
				return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "Invalid subject in token", nil))
			}

			ctx := common.WithIdentity(c.Request().Context(), userID, strings.ToUpper(claims.Role))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		})
	}
}

// RequireRole lets the request through only when the caller has one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := common.GetRoleFromContext(c.Request().Context())
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
		}
	}
}
