package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/response"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports whether the database answers.  Load balancers use it to
// take an instance out of rotation.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return response.Error(c, http.StatusServiceUnavailable, response.KindPersistence, "database unavailable")
		}
		return response.Success(c, http.StatusOK, echo.Map{"database": "up"})
	}
}
