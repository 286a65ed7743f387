package services

import (
	"context"
	"log/slog"
	"math"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

type progressService struct {
	sink   repositories.ProgressSink
	logger *slog.Logger
}

func NewProgressService(sink repositories.ProgressSink, logger *slog.Logger) ProgressService {
	return &progressService{sink: sink, logger: logger}
}

// Report notifies the progress tracker of an assignment outcome. Fire
// and forget: failures are logged, never propagated.
func (s *progressService) Report(ctx context.Context, assignment *models.Assignment, result *models.TestResult, timeSpentSeconds int, sess models.SessionContext) {
	status := models.ProgressSubmitted
	if result.Passed {
		status = models.ProgressGraded
	}

	payload := models.ProgressPayload{
		CourseID:        deref(assignment.CourseID),
		ModuleID:        deref(assignment.ModuleID),
		AssignmentID:    assignment.AssignmentID,
		AssignmentTitle: assignment.Title,
		Status:          status,
		Score:           int(math.Round(result.Percentage)),
		MaxScore:        100,
		TimeSpent:       timeSpentSeconds,
	}

	if err := s.sink.Report(ctx, sess.LearnerID, payload, sess); err != nil {
		s.logger.Warn("progress report failed",
			"assignment_id", assignment.AssignmentID,
			"learner_id", sess.LearnerID,
			"status", status,
			"error", err)
		return
	}

	s.logger.Debug("progress reported",
		"assignment_id", assignment.AssignmentID,
		"status", status)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
