package services

import (
	"context"

	"github.com/learnloop/assignment-engine/internal/models"
)

// ===== REQUEST/RESPONSE DTOs =====

type MountSessionRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
}

type SelectTopicRequest struct {
	TopicID string `json:"topic_id" validate:"required"`
}

type SelectAnswerRequest struct {
	QuestionID     int  `json:"question_id"`
	SelectedOption *int `json:"selected_option" validate:"required,gte=0"`
}

type SubmitTestRequest struct {
	// ConfirmIncomplete must be true to submit while unanswered
	// questions remain; otherwise the submit is rejected and the
	// session stays in the test view with answers untouched.
	ConfirmIncomplete bool `json:"confirm_incomplete"`
}

// TopicView is the study-view projection of a topic.
type TopicView struct {
	models.Topic
	Index   int  `json:"index"`
	Total   int  `json:"total"`
	IsFirst bool `json:"is_first"`
	IsLast  bool `json:"is_last"`
}

// QuestionView is the test-view projection of a question. The answer
// key is never included.
type QuestionView struct {
	QuestionID int      `json:"question_id"`
	Prompt     string   `json:"prompt"`
	Options    []string `json:"options"`
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	IsFirst    bool     `json:"is_first"`
	IsLast     bool     `json:"is_last"`
	Selected   *int     `json:"selected,omitempty"`
}

// SessionResponse is a snapshot of a study session.
type SessionResponse struct {
	SessionID         string             `json:"session_id"`
	View              models.SessionView `json:"view"`
	AssignmentID      string             `json:"assignment_id"`
	Title             string             `json:"title,omitempty"`
	Description       string             `json:"description,omitempty"`
	PassingPercentage float64            `json:"passing_percentage"`
	TotalQuestions    int                `json:"total_questions"`
	Topic             *TopicView         `json:"topic,omitempty"`
	Question          *QuestionView      `json:"question,omitempty"`
	AnsweredCount     int                `json:"answered_count"`
	Result            *models.TestResult `json:"result,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// ===== SERVICE INTERFACES =====

// ContentService resolves assignment content, remote first with a
// silent fallback to the embedded catalog.
type ContentService interface {
	Fetch(ctx context.Context, assignmentID string, sess models.SessionContext) (*models.Assignment, models.ContentProvenance, error)
}

// SubmissionService grades one completed attempt: remote grading first,
// local scoring as the degraded path when the assignment carries a full
// answer key.
type SubmissionService interface {
	Submit(ctx context.Context, assignment *models.Assignment, answers models.AnswerMap, timeSpentSeconds, priorAttempts int, sess models.SessionContext) (*models.TestResult, error)
}

// HistoryService reads the remote attempt history (newest first) and
// renders it as a spreadsheet on demand. The export also carries the
// locally graded attempts the remote store never saw.
type HistoryService interface {
	List(ctx context.Context, assignmentID string, sess models.SessionContext) ([]models.AttemptRecord, error)
	Export(assignmentID string, records []models.AttemptRecord, local []models.LocalAttemptRecord) ([]byte, error)
}

// ProgressService notifies the external progress tracker. Best effort:
// it never surfaces an error to the caller.
type ProgressService interface {
	Report(ctx context.Context, assignment *models.Assignment, result *models.TestResult, timeSpentSeconds int, sess models.SessionContext)
}

// SessionService is the session controller: it owns the per-session
// state machine (study/test/results plus the terminal error view) and
// drives the other services in response to learner actions.
type SessionService interface {
	Mount(ctx context.Context, req *MountSessionRequest, sess models.SessionContext) (*SessionResponse, error)
	Get(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)
	Teardown(ctx context.Context, sessionID string, sess models.SessionContext) error

	SelectTopic(ctx context.Context, sessionID string, req *SelectTopicRequest, sess models.SessionContext) (*SessionResponse, error)
	NextTopic(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)
	PreviousTopic(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)

	StartTest(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)
	SelectAnswer(ctx context.Context, sessionID string, req *SelectAnswerRequest, sess models.SessionContext) (*SessionResponse, error)
	NextQuestion(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)
	PreviousQuestion(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)
	Submit(ctx context.Context, sessionID string, req *SubmitTestRequest, sess models.SessionContext) (*SessionResponse, error)
	Retake(ctx context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error)

	History(ctx context.Context, sessionID string, sess models.SessionContext) ([]models.AttemptRecord, error)
	ExportHistory(ctx context.Context, sessionID string, sess models.SessionContext) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Session() SessionService
	Content() ContentService
	Submission() SubmissionService
	History() HistoryService
	Progress() ProgressService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
