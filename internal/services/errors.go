package services

import (
	"errors"
	"fmt"

	"github.com/learnloop/assignment-engine/internal/models"
)

// User-visible terminal failures; everything else is absorbed at the
// component that caused it.
var (
	ErrContentUnavailable = errors.New("assignment content unavailable from both remote and fallback sources")
	ErrGradingUnavailable = errors.New("attempt could not be graded: remote grading failed and the local answer key is incomplete")
)

// Engine-surface errors.
var (
	ErrSessionNotFound      = errors.New("study session not found")
	ErrConfirmationRequired = errors.New("unanswered questions remain; explicit confirmation required to submit")
	ErrSubmissionInFlight   = errors.New("a submission for this session is already in progress")
	ErrUnknownTopic         = errors.New("topic is not part of this assignment")
	ErrUnknownQuestion      = errors.New("question is not part of this assignment")
	ErrInvalidOption        = errors.New("selected option is outside the question's options")
)

// TransitionError reports an action attempted from a view that does not
// allow it.
type TransitionError struct {
	View   models.SessionView
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("action %q not allowed in view %q", e.Action, e.View)
}

func NewTransitionError(view models.SessionView, action string) error {
	return &TransitionError{View: view, Action: action}
}

// PermissionError reports a session accessed by a learner who does not
// own it.
type PermissionError struct {
	LearnerID string
	SessionID string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("learner %s does not own session %s", e.LearnerID, e.SessionID)
}

func NewPermissionError(learnerID, sessionID string) error {
	return &PermissionError{LearnerID: learnerID, SessionID: sessionID}
}
