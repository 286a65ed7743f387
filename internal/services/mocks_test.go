package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession() models.SessionContext {
	return models.SessionContext{LearnerID: "learner-1", Token: "token-1"}
}

func intPtr(v int) *int { return &v }

// testAssignment builds a fully keyed 10-question assignment with three
// topics and a 70% passing threshold. Correct answer is option 1 for
// every question.
func testAssignment() *models.Assignment {
	a := &models.Assignment{
		AssignmentID:      "go-fundamentals",
		Title:             "Go Fundamentals",
		Description:       "Core language drills",
		PassingPercentage: 70,
	}
	for i := 0; i < 3; i++ {
		a.Topics = append(a.Topics, models.Topic{
			TopicID: []string{"variables", "slices", "maps"}[i],
			Title:   "Topic",
			Content: "content",
		})
	}
	for i := 1; i <= 10; i++ {
		a.Questions = append(a.Questions, models.Question{
			QuestionID:    i,
			Prompt:        "pick the right one",
			Options:       []string{"wrong", "right", "also wrong"},
			CorrectAnswer: intPtr(1),
		})
	}
	a.TotalQuestions = len(a.Questions)
	return a
}

// correctAnswers answers n questions correctly (option 1), starting at
// question 1.
func correctAnswers(n int) models.AnswerMap {
	answers := models.AnswerMap{}
	for i := 1; i <= n; i++ {
		answers[i] = 1
	}
	return answers
}

// ===== REPOSITORY FAKES =====

type stubContentSource struct {
	mu         sync.Mutex
	assignment *models.Assignment
	err        error
	calls      int
}

func (s *stubContentSource) Fetch(_ context.Context, _ string, _ models.SessionContext) (*models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.assignment
	return &copied, nil
}

func (s *stubContentSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubGradingClient struct {
	mu          sync.Mutex
	result      *models.TestResult
	err         error
	calls       int
	lastPayload models.SubmitPayload
}

func (s *stubGradingClient) Submit(_ context.Context, _ string, payload models.SubmitPayload, _ models.SessionContext) (*models.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastPayload = payload
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.result
	return &copied, nil
}

func (s *stubGradingClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubAttemptSource struct {
	mu      sync.Mutex
	records []models.AttemptRecord
	err     error
	calls   int
}

func (s *stubAttemptSource) List(_ context.Context, _ string, _ models.SessionContext) ([]models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.AttemptRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *stubAttemptSource) setRecords(records []models.AttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.err = nil
}

func (s *stubAttemptSource) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type stubProgressSink struct {
	mu      sync.Mutex
	err     error
	reports []models.ProgressPayload
}

func (s *stubProgressSink) Report(_ context.Context, _ string, payload models.ProgressPayload, _ models.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, payload)
	return s.err
}

func (s *stubProgressSink) reported() []models.ProgressPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ProgressPayload, len(s.reports))
	copy(out, s.reports)
	return out
}

type memJournal struct {
	mu      sync.Mutex
	err     error
	records []models.LocalAttemptRecord
}

func (j *memJournal) Append(_ context.Context, rec *models.LocalAttemptRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, *rec)
	return nil
}

func (j *memJournal) CountByAssignment(_ context.Context, learnerID, assignmentID string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int64
	for _, r := range j.records {
		if r.LearnerID == learnerID && r.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

func (j *memJournal) ListByAssignment(_ context.Context, learnerID, assignmentID string) ([]models.LocalAttemptRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []models.LocalAttemptRecord
	for _, r := range j.records {
		if r.LearnerID == learnerID && r.AssignmentID == assignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (j *memJournal) stored() []models.LocalAttemptRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.LocalAttemptRecord, len(j.records))
	copy(out, j.records)
	return out
}

// ===== SERVICE FAKES =====

type stubSubmissionService struct {
	mu     sync.Mutex
	result *models.TestResult
	err    error
	calls  int

	lastAnswers models.AnswerMap
	lastPrior   int
	block       chan struct{} // when non-nil, Submit waits on it
}

func (s *stubSubmissionService) Submit(_ context.Context, _ *models.Assignment, answers models.AnswerMap, _, priorAttempts int, _ models.SessionContext) (*models.TestResult, error) {
	s.mu.Lock()
	s.calls++
	s.lastAnswers = answers.Clone()
	s.lastPrior = priorAttempts
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.result
	return &copied, nil
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

var errBoom = errors.New("boom")

func newTestValidator() *validator.Validator {
	return validator.New()
}
