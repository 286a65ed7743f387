package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/learnloop/assignment-engine/internal/events"
	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

type submissionService struct {
	grading  repositories.GradingClient
	journal  repositories.AttemptJournal
	progress ProgressService
	events   events.EventPublisher
	logger   *slog.Logger
}

// NewSubmissionService wires the dual-path grading flow. journal may be
// nil when no local journal is configured.
func NewSubmissionService(grading repositories.GradingClient, journal repositories.AttemptJournal, progress ProgressService, publisher events.EventPublisher, logger *slog.Logger) SubmissionService {
	return &submissionService{
		grading:  grading,
		journal:  journal,
		progress: progress,
		events:   publisher,
		logger:   logger,
	}
}

// Submit grades one attempt. The remote grading endpoint is tried
// first; on any remote failure the attempt is scored locally iff every
// question carries an answer key, otherwise ErrGradingUnavailable is
// returned and the caller keeps the answers for a retry. The two paths
// are sequential, never concurrent, so attempt numbers cannot be
// double-counted.
func (s *submissionService) Submit(ctx context.Context, assignment *models.Assignment, answers models.AnswerMap, timeSpentSeconds, priorAttempts int, sess models.SessionContext) (*models.TestResult, error) {
	s.logger.Info("submitting attempt",
		"assignment_id", assignment.AssignmentID,
		"learner_id", sess.LearnerID,
		"answered", len(answers),
		"total_questions", len(assignment.Questions))

	payload := models.SubmitPayload{Answers: answers, TimeSpent: timeSpentSeconds}
	result, remoteErr := s.grading.Submit(ctx, assignment.AssignmentID, payload, sess)
	if remoteErr == nil {
		result.Provenance = models.GradedRemote
		s.dispatchSideEffects(assignment, result, timeSpentSeconds, sess, events.TypeAttemptGraded)
		return result, nil
	}

	s.logger.Warn("remote grading failed, attempting local grading",
		"assignment_id", assignment.AssignmentID,
		"error", remoteErr)

	if !assignment.HasFullAnswerKey() {
		return nil, fmt.Errorf("%w: %v", ErrGradingUnavailable, remoteErr)
	}

	result = GradeLocally(assignment, answers, priorAttempts+1)

	s.journalAttempt(ctx, assignment, answers, result, timeSpentSeconds, sess)
	s.dispatchSideEffects(assignment, result, timeSpentSeconds, sess, events.TypeAttemptGradedDegraded)

	return result, nil
}

// journalAttempt records a locally graded attempt in the local journal.
// Best effort: journal failures are logged and swallowed. These records
// are not reconciled with the remote attempt history.
func (s *submissionService) journalAttempt(ctx context.Context, assignment *models.Assignment, answers models.AnswerMap, result *models.TestResult, timeSpentSeconds int, sess models.SessionContext) {
	if s.journal == nil {
		return
	}

	snapshot, err := json.Marshal(answers)
	if err != nil {
		s.logger.Error("marshal answers for journal", "error", err)
		return
	}

	rec := &models.LocalAttemptRecord{
		LearnerID:        sess.LearnerID,
		AssignmentID:     assignment.AssignmentID,
		AttemptNumber:    result.AttemptNumber,
		Score:            result.Score,
		TotalQuestions:   result.TotalQuestions,
		Percentage:       result.Percentage,
		Passed:           result.Passed,
		TimeSpentSeconds: timeSpentSeconds,
		Answers:          snapshot,
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		s.logger.Error("journal locally graded attempt",
			"assignment_id", assignment.AssignmentID,
			"learner_id", sess.LearnerID,
			"error", err)
	}
}

// dispatchSideEffects fires the progress report and the attempt event.
// Both are fire-and-forget; neither blocks the results transition.
func (s *submissionService) dispatchSideEffects(assignment *models.Assignment, result *models.TestResult, timeSpentSeconds int, sess models.SessionContext, eventType string) {
	go func() {
		// Detached from the request: the learner flow must not wait on
		// or fail with these collaborators.
		ctx := context.Background()

		s.progress.Report(ctx, assignment, result, timeSpentSeconds, sess)

		event := events.NewAttemptEvent(eventType, events.AttemptGradedData{
			LearnerID:     sess.LearnerID,
			AssignmentID:  assignment.AssignmentID,
			AttemptNumber: result.AttemptNumber,
			Score:         result.Score,
			Percentage:    result.Percentage,
			Passed:        result.Passed,
			Provenance:    string(result.Provenance),
			TimeSpent:     timeSpentSeconds,
		})
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("attempt event publish failed",
				"event_type", eventType,
				"assignment_id", assignment.AssignmentID,
				"error", err)
		}
	}()
}
