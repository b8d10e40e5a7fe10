package middleware

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/model"
)

const callerKey = "caller"

func setCaller(c echo.Context, caller model.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller stored by JWTAuth.
func CallerFrom(c echo.Context) (model.Caller, bool) {
	caller, ok := c.Get(callerKey).(model.Caller)
	return caller, ok
}

// callerFromClaims reads "sub" (a number or a numeric string) and "role".
func callerFromClaims(claims jwt.MapClaims) (model.Caller, bool) {
	var id uint64
	switch v := claims["sub"].(type) {
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return model.Caller{}, false
		}
		id = uint64(v)
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil || n == 0 {
			return model.Caller{}, false
		}
		id = n
	default:
		return model.Caller{}, false
	}
	role, _ := claims["role"].(string)
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return model.Caller{}, false
	}
	return model.Caller{ID: id, Role: role}, true
}

// subjectKey identifies the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func subjectKey(c echo.Context) string {
	if caller, ok := CallerFrom(c); ok {
		return strconv.FormatUint(caller.ID, 10)
	}
	return "anon"
}
