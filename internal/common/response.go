package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the standardized JSON response envelope.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError contains error details in the response.
type APIError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends a successful JSON response with data.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Error sends an error JSON response.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      statusCode,
			Message:   message,
			RequestID: c.GetString(RequestIDKey),
		},
	})
}

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "requestID"

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	var notFound *NotFoundError
	var validation *ValidationError
	var unauthorized *UnauthorizedError
	var conflict *ConflictError
	var provider *ProviderError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &provider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleError inspects a domain error and sends the appropriate HTTP response.
// Internal and provider details are not echoed to the client.
func HandleError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		Error(c, status, "internal server error")
	case http.StatusBadGateway:
		Error(c, status, "upstream provider failed")
	default:
		Error(c, status, err.Error())
	}
}
