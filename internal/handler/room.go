package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/pricing"
	"github.com/iliyamo/lodging-listings/internal/response"
)

// roomView is a room together with its price breakdown.
type roomView struct {
	model.Room
	PropertyID uint64            `json:"property_id"`
	Price      pricing.Breakdown `json:"price"`
}

// Rooms handles GET /v1/properties/:id/rooms.
func (h *PropertyHandler) Rooms(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	rooms, err := h.Store.RoomsByProperty(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]roomView, len(rooms))
	for i, r := range rooms {
		out[i] = roomView{Room: r, PropertyID: id, Price: pricing.Quote(r.Pricing)}
	}
	return response.Success(c, http.StatusOK, out)
}

// Room handles GET /v1/rooms/:id.
func (h *PropertyHandler) Room(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, propertyID, err := h.Store.RoomByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, roomView{Room: *r, PropertyID: propertyID, Price: pricing.Quote(r.Pricing)})
}
