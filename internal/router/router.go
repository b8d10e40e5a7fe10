// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/handler"
	"github.com/iliyamo/lodging-listings/internal/middleware"
	"github.com/iliyamo/lodging-listings/internal/model"
)

// RegisterRoutes registers the unauthenticated infrastructure endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the read and search endpoints guests may call.
// Search is wrapped in limiter (pass a pass-through when rate limiting is
// off).
func RegisterPublic(e *echo.Echo, h *handler.PropertyHandler, limiter echo.MiddlewareFunc) {
	e.GET("/v1/properties/search", h.Search, limiter)
	e.POST("/v1/properties/search", h.Search, limiter)
	e.GET("/v1/properties/:id", h.Get)
	e.GET("/v1/properties/:id/rooms", h.Rooms)
	e.GET("/v1/rooms/:id", h.Room)
}

// RegisterAuthenticated registers the endpoints that need a valid access
// token.  Ownership and the admin-only delete are enforced by the
// repository, not here.
func RegisterAuthenticated(e *echo.Echo, h *handler.PropertyHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/properties", h.List, middleware.RequireRole(model.RoleHost, model.RoleGuest, model.RoleAdmin))
	g.POST("/properties", h.Create, middleware.RequireRole(model.RoleHost, model.RoleAdmin))
	g.PUT("/properties/:id", h.Update, middleware.RequireRole(model.RoleHost, model.RoleAdmin))
	g.DELETE("/properties/:id", h.Delete)
}
