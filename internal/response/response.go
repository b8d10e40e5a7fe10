// Package response writes the JSON envelope shared by every endpoint:
//
//	{"status": "success", "data": ...}
//	{"status": "error", "kind": "...", "message": "..."}
package response

import "github.com/labstack/echo/v4"

// Error kinds.
const (
	KindValidation      = "validation"
	KindNotFound        = "not_found"
	KindAuthorization   = "authorization"
	KindUnauthenticated = "unauthenticated"
	KindRateLimited     = "rate_limited"
	KindPersistence     = "persistence"
	KindExternalService = "external_service"
)

type successBody struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorBody struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success writes data with the given status code.
func Success(c echo.Context, code int, data any) error {
	return c.JSON(code, successBody{Status: "success", Data: data})
}

// Error writes an error envelope.
func Error(c echo.Context, code int, kind, message string) error {
	return c.JSON(code, errorBody{Status: "error", Kind: kind, Message: message})
}
