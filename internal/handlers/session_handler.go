package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/services"
	"github.com/learnloop/assignment-engine/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// MountSession creates a study session for an assignment
// @Summary Mount session
// @Description Creates a session and loads the assignment content; returns the error view when no content source has it
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.MountSessionRequest true "Assignment to mount"
// @Success 201 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) MountSession(c *gin.Context) {
	var req services.MountSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	h.LogRequest(c, "mounting session", "assignment_id", req.AssignmentID)

	resp, err := h.sessionService.Mount(c.Request.Context(), &req, sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSession returns the current session snapshot
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	h.withSession(c, h.sessionService.Get)
}

// TeardownSession discards a session
// @Summary Teardown session
// @Description Removes the session; results of operations still in flight for it are discarded
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) TeardownSession(c *gin.Context) {
	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	if err := h.sessionService.Teardown(c.Request.Context(), c.Param("id"), sess); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SelectTopic jumps to a topic in the study view
// @Summary Select topic
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param topic body services.SelectTopicRequest true "Topic to show"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/topic [post]
func (h *SessionHandler) SelectTopic(c *gin.Context) {
	var req services.SelectTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	resp, err := h.sessionService.SelectTopic(c.Request.Context(), c.Param("id"), &req, sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// NextTopic advances to the next topic
// @Summary Next topic
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/topic/next [post]
func (h *SessionHandler) NextTopic(c *gin.Context) {
	h.withSession(c, h.sessionService.NextTopic)
}

// PreviousTopic goes back to the previous topic
// @Summary Previous topic
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/topic/previous [post]
func (h *SessionHandler) PreviousTopic(c *gin.Context) {
	h.withSession(c, h.sessionService.PreviousTopic)
}

// StartTest switches the session from study to test
// @Summary Start test
// @Description Begins a fresh attempt: empty answers, question pointer at the first question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/test/start [post]
func (h *SessionHandler) StartTest(c *gin.Context) {
	h.withSession(c, h.sessionService.StartTest)
}

// SelectAnswer records an answer for one question
// @Summary Select answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param answer body services.SelectAnswerRequest true "Question and selected option"
// @Success 200 {object} services.SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/test/answer [post]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	var req services.SelectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	resp, err := h.sessionService.SelectAnswer(c.Request.Context(), c.Param("id"), &req, sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// NextQuestion advances to the next question
// @Summary Next question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/test/next [post]
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	h.withSession(c, h.sessionService.NextQuestion)
}

// PreviousQuestion goes back to the previous question
// @Summary Previous question
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/test/previous [post]
func (h *SessionHandler) PreviousQuestion(c *gin.Context) {
	h.withSession(c, h.sessionService.PreviousQuestion)
}

// SubmitTest submits the attempt for grading
// @Summary Submit test
// @Description Grades the attempt remotely, falling back to local scoring when the assignment carries a full answer key
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param submit body services.SubmitTestRequest true "Submit options"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/{id}/test/submit [post]
func (h *SessionHandler) SubmitTest(c *gin.Context) {
	var req services.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	h.LogRequest(c, "submitting test", "session_id", c.Param("id"))

	resp, err := h.sessionService.Submit(c.Request.Context(), c.Param("id"), &req, sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Retake returns from the results view to the study view
// @Summary Retake
// @Description Clears the previous attempt and returns to study; the test starts again explicitly
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/retake [post]
func (h *SessionHandler) Retake(c *gin.Context) {
	h.withSession(c, h.sessionService.Retake)
}

// withSession runs a body-less session operation and writes the
// resulting snapshot.
func (h *SessionHandler) withSession(c *gin.Context, op func(ctx context.Context, sessionID string, sess models.SessionContext) (*services.SessionResponse, error)) {
	sess, ok := GetSessionContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Not authenticated"})
		return
	}

	resp, err := op(c.Request.Context(), c.Param("id"), sess)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
