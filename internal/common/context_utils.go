package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"catalogfacets/internal/catalog"
	"catalogfacets/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendServiceError maps a service error onto the matching response.
// Unknown attributes are the caller's fault, everything unrecognized is a 500.
func SendServiceError(c echo.Context, resource string, err error) error {
	var attrErr *catalog.AttributeError
	switch {
	case errors.As(err, &attrErr):
		return SendValidationError(c, attrErr.AttributeID, attrErr.Reason)
	case errors.Is(err, catalog.ErrUnknownAttribute):
		return SendClientError(c, err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		return SendNotFoundError(c, resource)
	case errors.Is(err, catalog.ErrMalformedVariantGraph):
		return c.JSON(http.StatusInternalServerError, CreateErrorResponse("CATALOG_INCONSISTENT", "Catalog data is inconsistent", nil))
	}
	return SendServerError(c, "Internal server error")
}

// ValidateUUID parses a required UUID field
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s contains invalid characters: %v", fieldName, err)
	}
	return id, nil
}
