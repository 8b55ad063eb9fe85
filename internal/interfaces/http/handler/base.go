// Package handler holds the gin handlers of the gateway.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/infrastructure/logger"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/infrastructure/printing"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
	"github.com/safee-analytics/odoo/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

func requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// Error sends an error envelope whose status field equals the HTTP status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithStatus(status, code, message, requestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// ValidationError sends a 400 response listing the rejected fields
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	details := middleware.ValidationDetails(err)
	if details == nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid JSON body")
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID(c), details))
}

// HandleError maps domain, Odoo and rendering errors onto the envelope.
// Unclassified errors become a 500 and are logged with the request logger.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	var renderErr *printing.RenderError
	if errors.As(err, &renderErr) {
		logger.GetGinLogger(c).Warn("Invoice rendering failed", zap.Error(err))
		h.Error(c, dto.GetHTTPStatus(renderErr.Code), renderErr.Code, renderErr.Message)
		return
	}

	var rpcErr *odoo.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Kind {
		case odoo.FaultModelNotFound:
			h.Error(c, http.StatusNotFound, dto.ErrCodeModelNotFound, fmt.Sprintf("Model %s not found", rpcErr.Model))
			return
		case odoo.FaultMethodNotFound:
			h.Error(c, http.StatusNotFound, dto.ErrCodeMethodNotFound,
				fmt.Sprintf("Method %s not found on model %s", rpcErr.Method, rpcErr.Model))
			return
		case odoo.FaultValidation:
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, rpcErr.Message)
			return
		case odoo.FaultUser:
			h.Error(c, http.StatusBadRequest, dto.ErrCodeUserError, rpcErr.Message)
			return
		}
	}

	switch {
	case errors.Is(err, odoo.ErrRecordNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Record not found")
	case errors.Is(err, odoo.ErrAccessDenied):
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied")
	case errors.Is(err, odoo.ErrModelNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeModelNotFound, "Model not found")
	case errors.Is(err, odoo.ErrAuthenticationFailed):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Odoo rejected the session credentials")
	default:
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
	}
}

// session returns the caller's Odoo session or aborts with 401
func (h *BaseHandler) session(c *gin.Context) (odoo.Session, bool) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		h.Unauthorized(c, "Missing or invalid authorization header")
	}
	return sess, ok
}

// intParam parses a positive numeric path parameter or aborts with 400
func (h *BaseHandler) intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		h.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// bindQueryOrBody binds the JSON body of a request that has one, the query
// string otherwise. List and report endpoints accept both forms.
func bindQueryOrBody(c *gin.Context, obj any) error {
	if c.Request.Method != http.MethodGet && c.Request.ContentLength != 0 {
		return c.ShouldBindJSON(obj)
	}
	return c.ShouldBindQuery(obj)
}

// intQuery parses an optional numeric query parameter
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
