package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnloop/assignment-engine/internal/cache"
	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
	"github.com/learnloop/assignment-engine/internal/validator"
)

type contentService struct {
	remote    repositories.ContentSource
	fallback  repositories.ContentSource
	cache     *cache.Helper
	logger    *slog.Logger
	validator *validator.Validator
}

func NewContentService(remote, fallback repositories.ContentSource, cacheHelper *cache.Helper, logger *slog.Logger, v *validator.Validator) ContentService {
	return &contentService{
		remote:    remote,
		fallback:  fallback,
		cache:     cacheHelper,
		logger:    logger,
		validator: v,
	}
}

// Fetch resolves assignment content: cache, then the remote content
// service, then the embedded fallback catalog. The fallback is used
// silently; only a miss on every source is surfaced, as
// ErrContentUnavailable.
func (s *contentService) Fetch(ctx context.Context, assignmentID string, sess models.SessionContext) (*models.Assignment, models.ContentProvenance, error) {
	var cached models.Assignment
	if err := s.cache.Get(ctx, "id:"+assignmentID, &cached); err == nil {
		return &cached, models.ContentRemote, nil
	}

	assignment, remoteErr := s.remote.Fetch(ctx, assignmentID, sess)
	if remoteErr == nil {
		if verrs := s.validator.ValidateAssignment(assignment); len(verrs) > 0 {
			// Malformed remote content is treated exactly like a failed
			// fetch so the learner still gets the fallback.
			s.logger.Warn("remote assignment failed validation",
				"assignment_id", assignmentID,
				"error", verrs.Error())
			remoteErr = verrs
		} else {
			if err := s.cache.Set(ctx, "id:"+assignmentID, assignment, cache.AssignmentTTL); err != nil {
				s.logger.Warn("assignment cache write failed", "assignment_id", assignmentID, "error", err)
			}
			return assignment, models.ContentRemote, nil
		}
	}

	if repositories.IsNotFoundError(remoteErr) {
		s.logger.Info("assignment not in remote content service, trying fallback catalog",
			"assignment_id", assignmentID)
	} else {
		s.logger.Warn("remote content fetch failed, trying fallback catalog",
			"assignment_id", assignmentID,
			"error", remoteErr)
	}

	assignment, fallbackErr := s.fallback.Fetch(ctx, assignmentID, sess)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf("%w: remote: %v; fallback: %v", ErrContentUnavailable, remoteErr, fallbackErr)
	}
	if verrs := s.validator.ValidateAssignment(assignment); len(verrs) > 0 {
		return nil, "", fmt.Errorf("%w: fallback assignment invalid: %v", ErrContentUnavailable, verrs)
	}

	s.logger.Info("serving fallback assignment",
		"assignment_id", assignmentID)

	return assignment, models.ContentFallback, nil
}
