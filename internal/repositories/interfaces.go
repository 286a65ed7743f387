package repositories

import (
	"context"

	"github.com/learnloop/assignment-engine/internal/models"
)

// ContentSource supplies an assignment by ID. Implemented by the
// upstream client and by the embedded fallback catalog.
type ContentSource interface {
	Fetch(ctx context.Context, assignmentID string, sess models.SessionContext) (*models.Assignment, error)
}

// AttemptSource lists past attempts for a learner/assignment pair.
// The remote attempt store is the source of truth for history.
type AttemptSource interface {
	List(ctx context.Context, assignmentID string, sess models.SessionContext) ([]models.AttemptRecord, error)
}

// GradingClient submits a completed answer map for remote grading.
type GradingClient interface {
	Submit(ctx context.Context, assignmentID string, payload models.SubmitPayload, sess models.SessionContext) (*models.TestResult, error)
}

// ProgressSink records an assignment outcome with the external progress
// tracker. Callers treat it as best effort.
type ProgressSink interface {
	Report(ctx context.Context, learnerID string, payload models.ProgressPayload, sess models.SessionContext) error
}

// AttemptJournal persists locally graded attempts. Append-only; these
// records are never reconciled with the remote history.
type AttemptJournal interface {
	Append(ctx context.Context, rec *models.LocalAttemptRecord) error
	CountByAssignment(ctx context.Context, learnerID, assignmentID string) (int64, error)
	ListByAssignment(ctx context.Context, learnerID, assignmentID string) ([]models.LocalAttemptRecord, error)
}
