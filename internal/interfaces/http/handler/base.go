package handler

import (
	"errors"
	"net/http"

	"github.com/facturante/backend/internal/domain/shared"
	"github.com/facturante/backend/internal/interfaces/http/dto"
	"github.com/facturante/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError responds to a request binding failure, with per-field details
// when the failure came from validation tags
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, middleware.FormatValidationErrors(err, getRequestID(c)))
		return
	}
	h.BadRequest(c, "Invalid request body: "+err.Error())
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError converts domain and standard errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c)))
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
