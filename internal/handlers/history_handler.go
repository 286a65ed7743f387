package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/assignment-engine/internal/services"
	"github.com/learnloop/assignment-engine/internal/utils"
)

type HistoryHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewHistoryHandler(sessionService services.SessionService, logger utils.Logger) *HistoryHandler {
	return &HistoryHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// GetHistory returns the attempt history for the session's assignment
// @Summary Get attempt history
// @Description Refreshes the remote attempt history; a failed refresh serves the last known records
// @Tags history
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/history [get]
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	records, err := h.sessionService.History(c.Request.Context(), c.Param("id"), sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    gin.H{"attempts": records},
	})
}

// ExportHistory downloads the attempt history as a spreadsheet
// @Summary Export attempt history
// @Tags history
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/history/export [get]
func (h *HistoryHandler) ExportHistory(c *gin.Context) {
	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	data, filename, err := h.sessionService.ExportHistory(c.Request.Context(), c.Param("id"), sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "history exported", "session_id", c.Param("id"), "bytes", len(data))

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
