package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/response"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// (HS256, signed with secret) and stores the caller it identifies in the
// request context; handlers read it back with CallerFrom.  Tokens are
// issued elsewhere: only the "sub" and "role" claims are used here.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !tok.Valid {
				logger.FromContext(c.Request().Context()).Debug("rejected access token", "err", err)
				return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "invalid token")
			}

			caller, ok := callerFromClaims(claims)
			if !ok {
				return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "invalid claims")
			}
			setCaller(c, caller)
			return next(c)
		}
	}
}
