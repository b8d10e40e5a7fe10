package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/contracts"
	"github.com/iliyamo/lodging-listings/internal/geocode"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/repository"
	"github.com/iliyamo/lodging-listings/internal/response"
	"github.com/iliyamo/lodging-listings/internal/search"
)

// respondError maps the error taxonomy onto HTTP status codes.  Storage
// and unexpected failures are logged and reported without detail.
func respondError(c echo.Context, err error) error {
	var (
		ve  *repository.ValidationError
		cv  *contracts.ViolationError
		ese *geocode.ExternalServiceError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &cv), errors.Is(err, search.ErrInvalidQuery):
		return response.Error(c, http.StatusBadRequest, response.KindValidation, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		return response.Error(c, http.StatusNotFound, response.KindNotFound, err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return response.Error(c, http.StatusForbidden, response.KindAuthorization, "you may not modify this property")
	case errors.Is(err, geocode.ErrNoMatch):
		return response.Error(c, http.StatusBadGateway, response.KindExternalService, err.Error())
	case errors.As(err, &ese):
		logger.FromContext(c.Request().Context()).Warn("geocoder failed", "err", err)
		return response.Error(c, http.StatusBadGateway, response.KindExternalService, "geocoding service unavailable")
	}
	logger.FromContext(c.Request().Context()).Error("request failed", "err", err)
	return response.Error(c, http.StatusInternalServerError, response.KindPersistence, "storage failure")
}
