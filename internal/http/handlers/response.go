// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the fail() helper that logs 5xx responses with the
// request-scoped logger, and failFromErr() which maps service errors to
// status codes.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-superchat-bridge/internal/http/middleware"
	"github.com/tbourn/go-superchat-bridge/internal/monitor"
	"github.com/tbourn/go-superchat-bridge/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Taxonomy kind: InvalidInput, NotFound, ChatUnavailable, PostFailed, ...
	Error string `json:"error" example:"NotFound"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Error:     kindOf(code),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFromErr maps a service error to its HTTP status and code.
func failFromErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, monitor.ErrInvalidVideoID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidInput, err.Error())
	case errors.Is(err, services.ErrLinkNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "link not found")
	case errors.Is(err, services.ErrChatUnavailable):
		fail(c, http.StatusBadGateway, ErrCodeChatUnavailable, "video has no active live chat")
	case errors.Is(err, services.ErrPostFailed):
		fail(c, http.StatusBadGateway, ErrCodePostFailed, "chat provider rejected the message")
	case errors.Is(err, services.ErrCodeSpaceExhausted), errors.Is(err, monitor.ErrPoolClosed),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
