package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/assignment-engine/internal/services"
	"github.com/learnloop/assignment-engine/internal/utils"
	"github.com/learnloop/assignment-engine/internal/validator"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the standard success body.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler provides shared helpers for all handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs handler activity with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

// handleServiceError maps service-layer errors onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var (
		validationErrs validator.ValidationErrors
		transitionErr  *services.TransitionError
		permissionErr  *services.PermissionError
	)

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "Request validation failed",
			Details: validationErrs,
		})

	case errors.Is(err, services.ErrUnknownTopic),
		errors.Is(err, services.ErrUnknownQuestion),
		errors.Is(err, services.ErrInvalidOption):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrContentUnavailable):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "content_unavailable",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrGradingUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "grading_unavailable",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrConfirmationRequired):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "confirmation_required",
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "submission_in_flight",
			Message: err.Error(),
		})

	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_transition",
			Message: transitionErr.Error(),
		})

	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You do not have access to this session",
		})

	default:
		utils.FromContext(c, h.logger).Error("unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An unexpected error occurred",
		})
	}
}
