package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/learnloop/assignment-engine/internal/cache"
	"github.com/learnloop/assignment-engine/internal/events"
	"github.com/learnloop/assignment-engine/internal/repositories"
	"github.com/learnloop/assignment-engine/internal/validator"
)

// ManagerDeps carries everything the service layer needs from the
// outside world. Journal may be nil (no local attempt journal
// configured); Cache tolerates a nil client internally.
type ManagerDeps struct {
	RemoteContent   repositories.ContentSource
	FallbackContent repositories.ContentSource
	Grading         repositories.GradingClient
	Attempts        repositories.AttemptSource
	ProgressSink    repositories.ProgressSink
	Journal         repositories.AttemptJournal
	Cache           *cache.Helper
	Events          events.EventPublisher
	Validator       *validator.Validator
	Logger          *slog.Logger
}

type DefaultServiceManager struct {
	session    SessionService
	content    ContentService
	submission SubmissionService
	history    HistoryService
	progress   ProgressService

	cache  *cache.Helper
	events events.EventPublisher
	logger *slog.Logger
}

func NewDefaultServiceManager(deps ManagerDeps) (*DefaultServiceManager, error) {
	if deps.RemoteContent == nil || deps.FallbackContent == nil {
		return nil, errors.New("service manager requires both content sources")
	}
	if deps.Grading == nil || deps.Attempts == nil || deps.ProgressSink == nil {
		return nil, errors.New("service manager requires grading, attempt and progress collaborators")
	}
	if deps.Events == nil || deps.Validator == nil || deps.Logger == nil {
		return nil, errors.New("service manager requires events, validator and logger")
	}

	if deps.Cache == nil {
		deps.Cache = cache.NewHelper(nil, "")
	}

	content := NewContentService(deps.RemoteContent, deps.FallbackContent, deps.Cache, deps.Logger, deps.Validator)
	progress := NewProgressService(deps.ProgressSink, deps.Logger)
	submission := NewSubmissionService(deps.Grading, deps.Journal, progress, deps.Events, deps.Logger)
	history := NewHistoryService(deps.Attempts, deps.Logger)
	session := NewSessionService(content, submission, history, deps.Journal, deps.Logger, deps.Validator)

	return &DefaultServiceManager{
		session:    session,
		content:    content,
		submission: submission,
		history:    history,
		progress:   progress,
		cache:      deps.Cache,
		events:     deps.Events,
		logger:     deps.Logger,
	}, nil
}

func (m *DefaultServiceManager) Session() SessionService       { return m.session }
func (m *DefaultServiceManager) Content() ContentService       { return m.content }
func (m *DefaultServiceManager) Submission() SubmissionService { return m.submission }
func (m *DefaultServiceManager) History() HistoryService       { return m.history }
func (m *DefaultServiceManager) Progress() ProgressService     { return m.progress }

// Initialize verifies optional infrastructure. The cache is best
// effort: an unreachable cache is logged and the engine runs without it.
func (m *DefaultServiceManager) Initialize(ctx context.Context) error {
	if m.cache != nil {
		if err := m.cache.Ping(ctx); err != nil {
			m.logger.Warn("assignment cache unreachable, continuing without cache", "error", err)
		}
	}
	m.logger.Info("service manager initialized")
	return nil
}

// HealthCheck reports readiness. Only hard dependencies fail the check;
// the cache is reported but tolerated.
func (m *DefaultServiceManager) HealthCheck(ctx context.Context) error {
	if m.cache != nil {
		if err := m.cache.Ping(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
			m.logger.Warn("health check: cache ping failed", "error", err)
		}
	}
	return nil
}

func (m *DefaultServiceManager) Shutdown(_ context.Context) error {
	if err := m.events.Close(); err != nil {
		m.logger.Error("closing event publisher", "error", err)
		return err
	}
	m.logger.Info("service manager shut down")
	return nil
}

var _ ServiceManager = (*DefaultServiceManager)(nil)
