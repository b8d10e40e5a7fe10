package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/contracts"
	"github.com/iliyamo/lodging-listings/internal/model"
	"github.com/iliyamo/lodging-listings/internal/response"
	"github.com/iliyamo/lodging-listings/internal/search"
)

// searchRequest is the body of POST /v1/properties/search; GET takes the
// same names as query parameters.
type searchRequest struct {
	Latitude     *float64 `json:"lat"`
	Longitude    *float64 `json:"lon"`
	RadiusKm     float64  `json:"radius"`
	Guests       int      `json:"guests"`
	PropertyType string   `json:"type"`
	Limit        int      `json:"limit"`
	Offset       int      `json:"offset"`
	Widen        bool     `json:"widen"`
	MaxRadiusKm  float64  `json:"max_radius"`
}

func bindSearch(c echo.Context) (searchRequest, error) {
	var req searchRequest
	if c.Request().Method == http.MethodPost {
		if err := c.Bind(&req); err != nil {
			return req, &contracts.ViolationError{Reason: "is not a valid search request"}
		}
		return req, nil
	}

	var lat, lon float64
	b := echo.QueryParamsBinder(c)
	err := b.MustFloat64("lat", &lat).
		MustFloat64("lon", &lon).
		Float64("radius", &req.RadiusKm).
		Int("guests", &req.Guests).
		String("type", &req.PropertyType).
		Int("limit", &req.Limit).
		Int("offset", &req.Offset).
		Bool("widen", &req.Widen).
		Float64("max_radius", &req.MaxRadiusKm).
		BindError()
	if err != nil {
		field := ""
		if be, ok := err.(*echo.BindingError); ok {
			field = be.Field
		}
		return req, &contracts.ViolationError{Field: field, Reason: "is missing or malformed"}
	}
	req.Latitude, req.Longitude = &lat, &lon
	return req, nil
}

// Search handles GET and POST /v1/properties/search.  With widen set, an
// empty result is retried at growing radii up to max_radius, which is
// clamped to the configured ceiling.
func (h *PropertyHandler) Search(c echo.Context) error {
	req, err := bindSearch(c)
	if err != nil {
		return respondError(c, err)
	}
	if req.Latitude == nil || req.Longitude == nil {
		return respondError(c, &contracts.ViolationError{Field: "lat", Reason: "lat and lon are required"})
	}

	q := search.Query{
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		RadiusKm:     req.RadiusKm,
		Guests:       req.Guests,
		PropertyType: model.PropertyType(strings.ToLower(strings.TrimSpace(req.PropertyType))),
		Limit:        req.Limit,
		Offset:       req.Offset,
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = h.DefaultRadiusKm
	}

	ctx := c.Request().Context()
	var res search.Result
	if req.Widen {
		policy := h.Widen
		// max_radius may only narrow the configured ceiling
		if req.MaxRadiusKm > 0 && req.MaxRadiusKm < policy.CeilingKm {
			policy.CeilingKm = req.MaxRadiusKm
		}
		res, err = search.Widen(ctx, h.Searcher, q, policy)
	} else {
		res, err = h.Searcher.Search(ctx, q)
	}
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, http.StatusOK, res)
}
