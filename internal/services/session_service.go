package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
	"github.com/learnloop/assignment-engine/internal/validator"
)

// sessionState is the runtime state of one learner's study session.
// Fields other than id, learnerID and sess are guarded by mu; the
// assignment pointer is set once at mount and immutable afterwards.
type sessionState struct {
	id        string
	learnerID string
	sess      models.SessionContext

	mu            sync.Mutex
	view          models.SessionView
	assignment    *models.Assignment
	provenance    models.ContentProvenance
	errMessage    string
	topicIndex    int
	questionIndex int
	answers       models.AnswerMap
	result        *models.TestResult
	testStartedAt time.Time
	submitting    bool

	// Attempt history as of the last successful remote refresh, plus
	// the count of known locally graded attempts: the journal count at
	// mount, incremented once per local grading in this session. Their
	// sum is the "known prior attempt count" used to synthesize local
	// attempt numbers.
	attempts      []models.AttemptRecord
	localAttempts int
}

func (st *sessionState) knownAttempts() int {
	return len(st.attempts) + st.localAttempts
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState

	content    ContentService
	submission SubmissionService
	history    HistoryService
	journal    repositories.AttemptJournal
	logger     *slog.Logger
	validator  *validator.Validator
}

// NewSessionService wires the session controller. journal may be nil
// when no local journal is configured.
func NewSessionService(content ContentService, submission SubmissionService, history HistoryService, journal repositories.AttemptJournal, logger *slog.Logger, v *validator.Validator) SessionService {
	return &sessionService{
		sessions:   make(map[string]*sessionState),
		content:    content,
		submission: submission,
		history:    history,
		journal:    journal,
		logger:     logger,
		validator:  v,
	}
}

// ===== LIFECYCLE =====

// Mount creates a session and resolves its assignment. When neither
// content source has the assignment the session is created in the
// terminal error view instead of failing the request; the learner
// retries by mounting again. A session never reaches the test view
// without loaded content.
func (s *sessionService) Mount(ctx context.Context, req *MountSessionRequest, sess models.SessionContext) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	st := &sessionState{
		id:        uuid.NewString(),
		learnerID: sess.LearnerID,
		sess:      sess,
		answers:   models.AnswerMap{},
	}

	assignment, provenance, err := s.content.Fetch(ctx, req.AssignmentID, sess)
	if err != nil {
		s.logger.Error("assignment content unavailable",
			"assignment_id", req.AssignmentID,
			"learner_id", sess.LearnerID,
			"error", err)
		st.view = models.ViewError
		st.errMessage = fmt.Sprintf("Assignment %q is currently unavailable. Please return to the catalog and try again.", req.AssignmentID)
	} else {
		st.view = models.ViewStudy
		st.assignment = assignment
		st.provenance = provenance
		st.localAttempts = s.journaledAttempts(ctx, req.AssignmentID, sess)
	}

	s.mu.Lock()
	s.sessions[st.id] = st
	s.mu.Unlock()

	if st.assignment != nil {
		go s.refreshHistory(st.id)
	}

	s.logger.Info("session mounted",
		"session_id", st.id,
		"assignment_id", req.AssignmentID,
		"learner_id", sess.LearnerID,
		"view", st.view)

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.snapshot(st, req.AssignmentID), nil
}

func (s *sessionService) Get(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.snapshot(st, ""), nil
}

// Teardown removes the session. Results of operations still pending for
// it are discarded when they complete, never applied.
func (s *sessionService) Teardown(_ context.Context, sessionID string, sess models.SessionContext) error {
	if _, err := s.lookup(sessionID, sess); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("session torn down", "session_id", sessionID, "learner_id", sess.LearnerID)
	return nil
}

// ===== TOPIC NAVIGATION (study view only, no side effects on answers) =====

func (s *sessionService) SelectTopic(_ context.Context, sessionID string, req *SelectTopicRequest, sess models.SessionContext) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewStudy {
		return nil, NewTransitionError(st.view, "select_topic")
	}

	idx := st.assignment.TopicIndex(req.TopicID)
	if idx < 0 {
		return nil, ErrUnknownTopic
	}
	st.topicIndex = idx

	return s.snapshot(st, ""), nil
}

func (s *sessionService) NextTopic(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	return s.moveTopic(sessionID, sess, 1)
}

func (s *sessionService) PreviousTopic(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	return s.moveTopic(sessionID, sess, -1)
}

// ===== TEST FLOW =====

// StartTest transitions study -> test: fresh answer map, question
// pointer at zero, start timestamp recorded. Guarded: only reachable
// with loaded content (the error view never satisfies the guard).
func (s *sessionService) StartTest(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewStudy {
		return nil, NewTransitionError(st.view, "start_test")
	}

	st.view = models.ViewTest
	st.answers = models.AnswerMap{}
	st.questionIndex = 0
	st.result = nil
	st.testStartedAt = time.Now()

	s.logger.Info("test started",
		"session_id", st.id,
		"assignment_id", st.assignment.AssignmentID,
		"learner_id", st.learnerID)

	return s.snapshot(st, ""), nil
}

// SelectAnswer writes or overwrites one answer. The selected index is
// validated against the question's options before it enters the map.
func (s *sessionService) SelectAnswer(_ context.Context, sessionID string, req *SelectAnswerRequest, sess models.SessionContext) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewTest {
		return nil, NewTransitionError(st.view, "select_answer")
	}

	question := st.assignment.QuestionByID(req.QuestionID)
	if question == nil {
		return nil, ErrUnknownQuestion
	}
	if *req.SelectedOption >= len(question.Options) {
		return nil, ErrInvalidOption
	}

	st.answers[req.QuestionID] = *req.SelectedOption

	return s.snapshot(st, ""), nil
}

func (s *sessionService) NextQuestion(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	return s.moveQuestion(sessionID, sess, 1)
}

func (s *sessionService) PreviousQuestion(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	return s.moveQuestion(sessionID, sess, -1)
}

// Submit hands the answer map to the submission service and enters the
// results view once grading has fully resolved. Submitting with
// unanswered questions requires explicit confirmation; declining leaves
// the session in the test view with answers untouched. The network call
// happens outside the session lock; if the session is torn down
// meanwhile, the grading result is discarded.
func (s *sessionService) Submit(ctx context.Context, sessionID string, req *SubmitTestRequest, sess models.SessionContext) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if st.view != models.ViewTest {
		st.mu.Unlock()
		return nil, NewTransitionError(st.view, "submit")
	}
	if st.submitting {
		st.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if len(st.answers) < len(st.assignment.Questions) && !req.ConfirmIncomplete {
		st.mu.Unlock()
		return nil, ErrConfirmationRequired
	}

	st.submitting = true
	assignment := st.assignment
	answers := st.answers.Clone()
	priorAttempts := st.knownAttempts()
	timeSpent := int(time.Since(st.testStartedAt).Seconds())
	st.mu.Unlock()

	result, err := s.submission.Submit(ctx, assignment, answers, timeSpent, priorAttempts, sess)

	st, lookupErr := s.lookup(sessionID, sess)
	if lookupErr != nil {
		// Torn down while grading was in flight; the result is not
		// applied anywhere.
		s.logger.Info("discarding grading outcome for torn-down session", "session_id", sessionID)
		return nil, ErrSessionNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.submitting = false

	if err != nil {
		// Answers stay intact so the learner can retry the submission.
		return nil, err
	}

	st.result = result
	st.view = models.ViewResults
	if result.Provenance == models.GradedLocal {
		st.localAttempts++
	}

	go s.refreshHistory(sessionID)

	s.logger.Info("attempt graded",
		"session_id", st.id,
		"assignment_id", assignment.AssignmentID,
		"attempt_number", result.AttemptNumber,
		"score", result.Score,
		"passed", result.Passed,
		"provenance", result.Provenance)

	return s.snapshot(st, ""), nil
}

// Retake clears the previous attempt's answers and result and returns
// to the study view; the learner must explicitly start the test again.
func (s *sessionService) Retake(_ context.Context, sessionID string, sess models.SessionContext) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewResults {
		return nil, NewTransitionError(st.view, "retake")
	}

	st.view = models.ViewStudy
	st.answers = models.AnswerMap{}
	st.result = nil
	st.questionIndex = 0

	return s.snapshot(st, ""), nil
}

// ===== HISTORY =====

// History refreshes and returns the remote attempt history. A failed
// refresh is absorbed: the most recent successfully fetched history is
// returned instead, which may be stale or empty.
func (s *sessionService) History(ctx context.Context, sessionID string, sess models.SessionContext) ([]models.AttemptRecord, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}
	if st.assignment == nil {
		return nil, NewTransitionError(models.ViewError, "history")
	}

	records, listErr := s.history.List(ctx, st.assignment.AssignmentID, sess)

	st.mu.Lock()
	defer st.mu.Unlock()

	if listErr != nil {
		s.logger.Warn("history refresh failed, serving last known history",
			"session_id", sessionID,
			"error", listErr)
		stale := make([]models.AttemptRecord, len(st.attempts))
		copy(stale, st.attempts)
		return stale, nil
	}

	st.attempts = records
	out := make([]models.AttemptRecord, len(records))
	copy(out, records)
	return out, nil
}

// ExportHistory renders the session's attempt history as XLSX.
func (s *sessionService) ExportHistory(ctx context.Context, sessionID string, sess models.SessionContext) ([]byte, string, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, "", err
	}
	if st.assignment == nil {
		return nil, "", NewTransitionError(models.ViewError, "export_history")
	}

	records, err := s.History(ctx, sessionID, sess)
	if err != nil {
		return nil, "", err
	}

	// Locally graded attempts never reach the remote store; the export
	// is where that gap becomes visible to the learner.
	var local []models.LocalAttemptRecord
	if s.journal != nil {
		local, err = s.journal.ListByAssignment(ctx, sess.LearnerID, st.assignment.AssignmentID)
		if err != nil {
			s.logger.Warn("journal read failed, exporting remote history only",
				"session_id", sessionID,
				"error", err)
			local = nil
		}
	}

	data, err := s.history.Export(st.assignment.AssignmentID, records, local)
	if err != nil {
		return nil, "", fmt.Errorf("export history: %w", err)
	}

	filename := fmt.Sprintf("attempts-%s.xlsx", st.assignment.AssignmentID)
	return data, filename, nil
}
