package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/contracts"
	"github.com/iliyamo/lodging-listings/internal/geocode"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/middleware"
	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/queue"
	"github.com/iliyamo/lodging-listings/internal/response"
	"github.com/iliyamo/lodging-listings/internal/search"
)

// PropertyStore is the persistence the handlers need; *repository.PropertyRepo
// implements it.
type PropertyStore interface {
	Create(ctx context.Context, p *model.Property) (*model.Property, error)
	GetByID(ctx context.Context, id uint64) (*model.Property, error)
	Update(ctx context.Context, id uint64, p *model.Property, caller model.Caller) (*model.Property, error)
	Delete(ctx context.Context, id uint64, caller model.Caller) error
	List(ctx context.Context, caller model.Caller) ([]model.PropertySummary, error)
	RoomsByProperty(ctx context.Context, propertyID uint64) ([]model.Room, error)
	RoomByID(ctx context.Context, roomID uint64) (*model.Room, uint64, error)
}

// EventPublisher sends lifecycle events after a write has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.PropertyEvent) error
}

// PropertyHandler serves the property and search endpoints.  Geocoder and
// Events are optional.
type PropertyHandler struct {
	Store    PropertyStore
	Searcher search.Searcher
	Geocoder geocode.Geocoder
	Events   EventPublisher

	Widen           search.WidenPolicy
	DefaultRadiusKm float64
}

const maxBodyBytes = 1 << 20

// Create handles POST /v1/properties.  The caller becomes the host.  When
// the payload has no coordinates the address is geocoded first.
func (h *PropertyHandler) Create(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "unauthorized")
	}
	p, err := decodeProperty(c)
	if err != nil {
		return respondError(c, err)
	}
	p.HostID = caller.ID

	ctx := c.Request().Context()
	if err := h.locate(ctx, p); err != nil {
		return respondError(c, err)
	}
	created, err := h.Store.Create(ctx, p)
	if err != nil {
		return respondError(c, err)
	}
	h.publish(ctx, queue.NewPropertyEvent(queue.PropertyCreated, created.ID, created, caller))
	return response.Success(c, http.StatusCreated, created)
}

// Get handles GET /v1/properties/:id.
func (h *PropertyHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	p, err := h.Store.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, p)
}

// Update handles PUT /v1/properties/:id.  The body is the full document;
// owned collections are replaced by what it contains.
func (h *PropertyHandler) Update(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	p, err := decodeProperty(c)
	if err != nil {
		return respondError(c, err)
	}

	ctx := c.Request().Context()
	if err := h.locate(ctx, p); err != nil {
		return respondError(c, err)
	}
	updated, err := h.Store.Update(ctx, id, p, caller)
	if err != nil {
		return respondError(c, err)
	}
	h.publish(ctx, queue.NewPropertyEvent(queue.PropertyUpdated, id, updated, caller))
	return response.Success(c, http.StatusOK, updated)
}

// Delete handles DELETE /v1/properties/:id (administrators only).
func (h *PropertyHandler) Delete(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	if err := h.Store.Delete(ctx, id, caller); err != nil {
		return respondError(c, err)
	}
	h.publish(ctx, queue.NewPropertyEvent(queue.PropertyDeleted, id, nil, caller))
	return response.Success(c, http.StatusOK, echo.Map{"id": id})
}

// List handles GET /v1/properties: the caller's own properties, or all of
// them for administrators.
func (h *PropertyHandler) List(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, response.KindUnauthenticated, "unauthorized")
	}
	items, err := h.Store.List(c.Request().Context(), caller)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, items)
}

// locate fills in missing coordinates from the address.  Without a
// geocoder the document is passed on unchanged and the store rejects it.
func (h *PropertyHandler) locate(ctx context.Context, p *model.Property) error {
	if p.Coordinates != nil || h.Geocoder == nil {
		return nil
	}
	pt, err := h.Geocoder.Geocode(ctx, p.Address)
	if err != nil {
		return err
	}
	p.Coordinates = &pt
	return nil
}

func (h *PropertyHandler) publish(ctx context.Context, ev queue.PropertyEvent) {
	if h.Events == nil {
		return
	}
	// failures are logged by the publisher; the write has already committed
	if err := h.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.FromContext(ctx).Warn("property event not published", "event_id", ev.EventID, "err", err)
	}
}

// decodeProperty checks the raw body against the property contract and
// decodes it.
func decodeProperty(c echo.Context) (*model.Property, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return nil, &contracts.ViolationError{Reason: "could not be read"}
	}
	if err := contracts.ValidateProperty(body); err != nil {
		return nil, err
	}
	var p model.Property
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &contracts.ViolationError{Reason: err.Error()}
	}
	return &p, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &contracts.ViolationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}
