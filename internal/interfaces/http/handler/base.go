// Package handler holds the gin handlers of the ledger API
package handler

import (
	"errors"
	"net/http"

	"github.com/erp/ledgersync/internal/domain/integration"
	"github.com/erp/ledgersync/internal/domain/shared"
	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/erp/ledgersync/internal/interfaces/http/dto"
	"github.com/erp/ledgersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

func requestID(c *gin.Context) string {
	if id := logger.GetRequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, requestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// BindError answers a request whose body or query failed to bind
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID(c), details))
		return
	}
	h.BadRequest(c, "Malformed request body")
}

// HandleError maps domain and accounting errors to responses. Anything
// unrecognized is logged and answered with a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.FromDomainCode(domainErr.Code), domainErr.Message)
		return
	}

	if code := upstreamCode(err); code != "" {
		h.Error(c, code, err.Error())
		return
	}

	logger.L(c.Request.Context()).Error("unhandled request error", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// upstreamCode classifies accounting transport errors
func upstreamCode(err error) string {
	switch {
	case errors.Is(err, integration.ErrSyncTimeout):
		return dto.ErrCodeUpstreamTimeout
	case errors.Is(err, integration.ErrExternalRateLimited):
		return dto.ErrCodeRateLimited
	case errors.Is(err, integration.ErrExternalUnavailable),
		errors.Is(err, integration.ErrTokenRefreshFailed):
		return dto.ErrCodeUpstreamUnavailable
	case errors.Is(err, integration.ErrExternalAuthFailed),
		errors.Is(err, integration.ErrExternalRequestFailed),
		errors.Is(err, integration.ErrExternalInvalidResponse):
		return dto.ErrCodeUpstream
	}
	return ""
}

// ParseUUID reads a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) ParseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, "Invalid "+param+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
