package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/learnloop/assignment-engine/internal/events"
	"github.com/learnloop/assignment-engine/internal/models"
)

type fakeContentService struct {
	assignment *models.Assignment
	provenance models.ContentProvenance
	err        error
}

func (f *fakeContentService) Fetch(_ context.Context, _ string, _ models.SessionContext) (*models.Assignment, models.ContentProvenance, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	copied := *f.assignment
	return &copied, f.provenance, nil
}

type fakeHistoryService struct {
	mu      sync.Mutex
	records []models.AttemptRecord
	err     error
	calls   int
}

func (f *fakeHistoryService) List(_ context.Context, _ string, _ models.SessionContext) ([]models.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.AttemptRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeHistoryService) Export(_ string, _ []models.AttemptRecord, _ []models.LocalAttemptRecord) ([]byte, error) {
	return []byte("xlsx-bytes"), nil
}

func (f *fakeHistoryService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeHistoryService) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type sessionFixture struct {
	content    *fakeContentService
	submission *stubSubmissionService
	history    *fakeHistoryService
	service    SessionService
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		content: &fakeContentService{
			assignment: testAssignment(),
			provenance: models.ContentRemote,
		},
		submission: &stubSubmissionService{
			result: &models.TestResult{
				Score:          7,
				TotalQuestions: 10,
				Percentage:     70,
				Passed:         true,
				Message:        "Graded",
				AttemptNumber:  1,
				Provenance:     models.GradedRemote,
			},
		},
		history: &fakeHistoryService{},
	}
	f.service = NewSessionService(f.content, f.submission, f.history, nil, testLogger(), newTestValidator())
	return f
}

func (f *sessionFixture) mount(t *testing.T) *SessionResponse {
	t.Helper()
	resp, err := f.service.Mount(context.Background(), &MountSessionRequest{AssignmentID: "go-fundamentals"}, testSession())
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return resp
}

// mountInTest mounts a session and drives it into the test view.
func (f *sessionFixture) mountInTest(t *testing.T) *SessionResponse {
	t.Helper()
	resp := f.mount(t)
	resp, err := f.service.StartTest(context.Background(), resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("StartTest() error = %v", err)
	}
	return resp
}

func (f *sessionFixture) answerAll(t *testing.T, sessionID string) {
	t.Helper()
	for i := 1; i <= 10; i++ {
		req := &SelectAnswerRequest{QuestionID: i, SelectedOption: intPtr(1)}
		if _, err := f.service.SelectAnswer(context.Background(), sessionID, req, testSession()); err != nil {
			t.Fatalf("SelectAnswer(%d) error = %v", i, err)
		}
	}
}

// ===== LIFECYCLE =====

func TestMountEntersStudyView(t *testing.T) {
	f := newSessionFixture()

	resp := f.mount(t)

	if resp.View != models.ViewStudy {
		t.Errorf("view = %q, want %q", resp.View, models.ViewStudy)
	}
	if resp.SessionID == "" {
		t.Error("session ID must be assigned")
	}
	if resp.Topic == nil || resp.Topic.Index != 0 || !resp.Topic.IsFirst {
		t.Errorf("topic = %+v, want the first topic selected", resp.Topic)
	}
	if resp.TotalQuestions != 10 {
		t.Errorf("total questions = %d, want 10", resp.TotalQuestions)
	}

	// History loads in the background after mount.
	waitFor(t, func() bool { return f.history.callCount() >= 1 }, "background history refresh")
}

func TestMountContentUnavailable(t *testing.T) {
	f := newSessionFixture()
	f.content.err = ErrContentUnavailable

	resp := f.mount(t)

	if resp.View != models.ViewError {
		t.Fatalf("view = %q, want %q", resp.View, models.ViewError)
	}
	if resp.Error == "" {
		t.Error("error view must carry a learner-facing message")
	}

	// The error view is terminal: no test can start from it.
	_, err := f.service.StartTest(context.Background(), resp.SessionID, testSession())
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("StartTest() error = %v, want TransitionError", err)
	}
}

func TestSessionOwnership(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	intruder := models.SessionContext{LearnerID: "learner-2", Token: "token-2"}
	_, err := f.service.Get(context.Background(), resp.SessionID, intruder)
	var pe *PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("Get() error = %v, want PermissionError", err)
	}
}

func TestTeardownRemovesSession(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	if err := f.service.Teardown(context.Background(), resp.SessionID, testSession()); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	if _, err := f.service.Get(context.Background(), resp.SessionID, testSession()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after teardown = %v, want ErrSessionNotFound", err)
	}
}

// ===== TOPIC NAVIGATION =====

func TestSelectTopic(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	resp, err := f.service.SelectTopic(context.Background(), resp.SessionID, &SelectTopicRequest{TopicID: "maps"}, testSession())
	if err != nil {
		t.Fatalf("SelectTopic() error = %v", err)
	}
	if resp.Topic.Index != 2 || !resp.Topic.IsLast {
		t.Errorf("topic = %+v, want index 2", resp.Topic)
	}

	_, err = f.service.SelectTopic(context.Background(), resp.SessionID, &SelectTopicRequest{TopicID: "nope"}, testSession())
	if !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("SelectTopic(unknown) = %v, want ErrUnknownTopic", err)
	}
}

func TestTopicNavigationClamps(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)
	ctx := context.Background()

	// Already at the first topic; previous is a no-op.
	resp, err := f.service.PreviousTopic(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("PreviousTopic() error = %v", err)
	}
	if resp.Topic.Index != 0 {
		t.Errorf("topic index = %d, want clamp at 0", resp.Topic.Index)
	}

	for i := 0; i < 5; i++ {
		resp, err = f.service.NextTopic(ctx, resp.SessionID, testSession())
		if err != nil {
			t.Fatalf("NextTopic() error = %v", err)
		}
	}
	if resp.Topic.Index != 2 {
		t.Errorf("topic index = %d, want clamp at last topic", resp.Topic.Index)
	}
}

// ===== TEST FLOW =====

func TestStartTestResetsAttemptState(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)

	if resp.View != models.ViewTest {
		t.Fatalf("view = %q, want %q", resp.View, models.ViewTest)
	}
	if resp.Question == nil || resp.Question.Index != 0 {
		t.Errorf("question = %+v, want pointer at first question", resp.Question)
	}
	if resp.AnsweredCount != 0 {
		t.Errorf("answered count = %d, want fresh answer map", resp.AnsweredCount)
	}
	if resp.Question.Selected != nil {
		t.Error("fresh question must have no selection")
	}
}

func TestSelectAnswer(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)
	ctx := context.Background()

	resp, err := f.service.SelectAnswer(ctx, resp.SessionID, &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(2)}, testSession())
	if err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}
	if resp.AnsweredCount != 1 {
		t.Errorf("answered count = %d, want 1", resp.AnsweredCount)
	}
	if resp.Question.Selected == nil || *resp.Question.Selected != 2 {
		t.Errorf("selected = %v, want 2", resp.Question.Selected)
	}

	// Overwriting the same question does not grow the count.
	resp, err = f.service.SelectAnswer(ctx, resp.SessionID, &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(0)}, testSession())
	if err != nil {
		t.Fatalf("SelectAnswer() overwrite error = %v", err)
	}
	if resp.AnsweredCount != 1 {
		t.Errorf("answered count after overwrite = %d, want 1", resp.AnsweredCount)
	}

	_, err = f.service.SelectAnswer(ctx, resp.SessionID, &SelectAnswerRequest{QuestionID: 99, SelectedOption: intPtr(0)}, testSession())
	if !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("SelectAnswer(unknown question) = %v, want ErrUnknownQuestion", err)
	}

	_, err = f.service.SelectAnswer(ctx, resp.SessionID, &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(7)}, testSession())
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("SelectAnswer(out of range) = %v, want ErrInvalidOption", err)
	}
}

func TestSelectAnswerOutsideTestView(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	_, err := f.service.SelectAnswer(context.Background(), resp.SessionID, &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(0)}, testSession())
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("SelectAnswer() in study view = %v, want TransitionError", err)
	}
}

func TestQuestionNavigationClamps(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)
	ctx := context.Background()

	resp, err := f.service.PreviousQuestion(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("PreviousQuestion() error = %v", err)
	}
	if resp.Question.Index != 0 {
		t.Errorf("question index = %d, want clamp at 0", resp.Question.Index)
	}

	for i := 0; i < 20; i++ {
		resp, err = f.service.NextQuestion(ctx, resp.SessionID, testSession())
		if err != nil {
			t.Fatalf("NextQuestion() error = %v", err)
		}
	}
	if resp.Question.Index != 9 || !resp.Question.IsLast {
		t.Errorf("question index = %d, want clamp at last question", resp.Question.Index)
	}
}

// ===== SUBMIT =====

func TestSubmitComplete(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)
	f.answerAll(t, resp.SessionID)

	resp, err := f.service.Submit(context.Background(), resp.SessionID, &SubmitTestRequest{}, testSession())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if resp.View != models.ViewResults {
		t.Errorf("view = %q, want %q", resp.View, models.ViewResults)
	}
	if resp.Result == nil || resp.Result.Score != 7 {
		t.Errorf("result = %+v, want the graded result", resp.Result)
	}
	if len(f.submission.lastAnswers) != 10 {
		t.Errorf("submitted answers = %d, want all 10", len(f.submission.lastAnswers))
	}
}

func TestSubmitIncompleteRequiresConfirmation(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)
	ctx := context.Background()

	req := &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(1)}
	if _, err := f.service.SelectAnswer(ctx, resp.SessionID, req, testSession()); err != nil {
		t.Fatalf("SelectAnswer() error = %v", err)
	}

	_, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("Submit() error = %v, want ErrConfirmationRequired", err)
	}

	// Declining leaves the test view and the answers untouched.
	got, err := f.service.Get(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.View != models.ViewTest || got.AnsweredCount != 1 {
		t.Errorf("view/answered = %q/%d, want test/1", got.View, got.AnsweredCount)
	}

	// Explicit confirmation goes through.
	got, err = f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{ConfirmIncomplete: true}, testSession())
	if err != nil {
		t.Fatalf("confirmed Submit() error = %v", err)
	}
	if got.View != models.ViewResults {
		t.Errorf("view = %q, want %q", got.View, models.ViewResults)
	}
}

func TestSubmitFailureKeepsAnswers(t *testing.T) {
	f := newSessionFixture()
	f.submission.err = ErrGradingUnavailable
	resp := f.mountInTest(t)
	f.answerAll(t, resp.SessionID)
	ctx := context.Background()

	_, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
	if !errors.Is(err, ErrGradingUnavailable) {
		t.Fatalf("Submit() error = %v, want ErrGradingUnavailable", err)
	}

	got, err := f.service.Get(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.View != models.ViewTest || got.AnsweredCount != 10 {
		t.Errorf("view/answered = %q/%d, failed submit must keep the test state", got.View, got.AnsweredCount)
	}

	// The learner can retry once grading is back.
	f.submission.err = nil
	if _, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession()); err != nil {
		t.Fatalf("retry Submit() error = %v", err)
	}
}

func TestSubmitConcurrentRejected(t *testing.T) {
	f := newSessionFixture()
	f.submission.block = make(chan struct{})
	resp := f.mountInTest(t)
	f.answerAll(t, resp.SessionID)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
		firstDone <- err
	}()

	waitFor(t, func() bool {
		f.submission.mu.Lock()
		defer f.submission.mu.Unlock()
		return f.submission.calls == 1
	}, "first submit to reach the grader")

	_, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Fatalf("second Submit() error = %v, want ErrSubmissionInFlight", err)
	}

	close(f.submission.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
}

func TestSubmitDiscardedAfterTeardown(t *testing.T) {
	f := newSessionFixture()
	f.submission.block = make(chan struct{})
	resp := f.mountInTest(t)
	f.answerAll(t, resp.SessionID)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
		done <- err
	}()

	waitFor(t, func() bool {
		f.submission.mu.Lock()
		defer f.submission.mu.Unlock()
		return f.submission.calls == 1
	}, "submit to reach the grader")

	if err := f.service.Teardown(ctx, resp.SessionID, testSession()); err != nil {
		t.Fatalf("Teardown() error = %v", err)
	}
	close(f.submission.block)

	select {
	case err := <-done:
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Submit() after teardown = %v, want ErrSessionNotFound (result discarded)", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return")
	}
}

func TestSubmitAttemptNumberIncludesKnownHistory(t *testing.T) {
	f := newSessionFixture()
	f.history.records = []models.AttemptRecord{
		{AttemptNumber: 2, CreatedAt: time.Now()},
		{AttemptNumber: 1, CreatedAt: time.Now().Add(-time.Hour)},
	}
	f.submission.result = &models.TestResult{
		Score: 5, TotalQuestions: 10, Percentage: 50,
		AttemptNumber: 3, Provenance: models.GradedLocal,
	}

	resp := f.mount(t)
	waitFor(t, func() bool { return f.history.callCount() >= 1 }, "history refresh")
	// Mount's refresh has landed; attempt counting can start from it.
	waitFor(t, func() bool {
		got, err := f.service.History(context.Background(), resp.SessionID, testSession())
		return err == nil && len(got) == 2
	}, "history to be applied")

	ctx := context.Background()
	if _, err := f.service.StartTest(ctx, resp.SessionID, testSession()); err != nil {
		t.Fatalf("StartTest() error = %v", err)
	}
	f.answerAll(t, resp.SessionID)
	if _, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if f.submission.lastPrior != 2 {
		t.Errorf("prior attempts = %d, want 2 from remote history", f.submission.lastPrior)
	}

	// The locally graded attempt counts toward the next submission even
	// though the remote history never saw it.
	if _, err := f.service.Retake(ctx, resp.SessionID, testSession()); err != nil {
		t.Fatalf("Retake() error = %v", err)
	}
	if _, err := f.service.StartTest(ctx, resp.SessionID, testSession()); err != nil {
		t.Fatalf("second StartTest() error = %v", err)
	}
	f.answerAll(t, resp.SessionID)
	if _, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession()); err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if f.submission.lastPrior != 3 {
		t.Errorf("prior attempts = %d, want 3 (remote history + local attempt)", f.submission.lastPrior)
	}
}

// Attempt numbers must keep climbing across sessions while the remote
// side is down: a new session seeds its local attempt count from the
// journal instead of restarting at zero.
func TestLocalAttemptNumberingAcrossSessions(t *testing.T) {
	logger := testLogger()
	journal := &memJournal{}
	grading := &stubGradingClient{err: errBoom}
	submission := NewSubmissionService(grading, journal, NewProgressService(&stubProgressSink{}, logger), events.NewMockEventPublisher(logger), logger)
	content := &fakeContentService{assignment: testAssignment(), provenance: models.ContentRemote}
	history := &fakeHistoryService{err: errBoom}
	service := NewSessionService(content, submission, history, journal, logger, newTestValidator())

	ctx := context.Background()
	runAttempt := func() *models.TestResult {
		t.Helper()
		resp, err := service.Mount(ctx, &MountSessionRequest{AssignmentID: "go-fundamentals"}, testSession())
		if err != nil {
			t.Fatalf("Mount() error = %v", err)
		}
		if _, err := service.StartTest(ctx, resp.SessionID, testSession()); err != nil {
			t.Fatalf("StartTest() error = %v", err)
		}
		for i := 1; i <= 10; i++ {
			req := &SelectAnswerRequest{QuestionID: i, SelectedOption: intPtr(1)}
			if _, err := service.SelectAnswer(ctx, resp.SessionID, req, testSession()); err != nil {
				t.Fatalf("SelectAnswer(%d) error = %v", i, err)
			}
		}
		resp, err = service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if err := service.Teardown(ctx, resp.SessionID, testSession()); err != nil {
			t.Fatalf("Teardown() error = %v", err)
		}
		return resp.Result
	}

	first := runAttempt()
	if first.Provenance != models.GradedLocal || first.AttemptNumber != 1 {
		t.Fatalf("first attempt = %q #%d, want local #1", first.Provenance, first.AttemptNumber)
	}

	second := runAttempt()
	if second.AttemptNumber != 2 {
		t.Errorf("second attempt number = %d, want 2 (seeded from the journal)", second.AttemptNumber)
	}

	rows := journal.stored()
	if len(rows) != 2 {
		t.Fatalf("journal rows = %d, want 2", len(rows))
	}
	if rows[0].AttemptNumber != 1 || rows[1].AttemptNumber != 2 {
		t.Errorf("journal attempt numbers = %d/%d, want 1/2", rows[0].AttemptNumber, rows[1].AttemptNumber)
	}
}

// ===== RETAKE =====

func TestRetakeResetsToStudy(t *testing.T) {
	f := newSessionFixture()
	resp := f.mountInTest(t)
	f.answerAll(t, resp.SessionID)
	ctx := context.Background()

	resp, err := f.service.Submit(ctx, resp.SessionID, &SubmitTestRequest{}, testSession())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	resp, err = f.service.Retake(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("Retake() error = %v", err)
	}
	if resp.View != models.ViewStudy {
		t.Errorf("view = %q, want %q", resp.View, models.ViewStudy)
	}
	if resp.AnsweredCount != 0 || resp.Result != nil {
		t.Errorf("answered/result = %d/%v, retake must clear the attempt", resp.AnsweredCount, resp.Result)
	}

	// Retake returns to study; the test does not restart by itself.
	var te *TransitionError
	if _, err := f.service.SelectAnswer(ctx, resp.SessionID, &SelectAnswerRequest{QuestionID: 1, SelectedOption: intPtr(0)}, testSession()); !errors.As(err, &te) {
		t.Errorf("SelectAnswer() after retake = %v, want TransitionError", err)
	}
}

func TestRetakeOnlyFromResults(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	var te *TransitionError
	if _, err := f.service.Retake(context.Background(), resp.SessionID, testSession()); !errors.As(err, &te) {
		t.Errorf("Retake() from study = %v, want TransitionError", err)
	}
}

// ===== HISTORY =====

func TestHistoryServesStaleOnFailure(t *testing.T) {
	f := newSessionFixture()
	f.history.records = []models.AttemptRecord{{AttemptNumber: 1, CreatedAt: time.Now()}}
	resp := f.mount(t)
	ctx := context.Background()

	records, err := f.service.History(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	// A failing refresh falls back to the last known history.
	f.history.setError(errBoom)
	records, err = f.service.History(ctx, resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("History() with failing source = %v, want stale records", err)
	}
	if len(records) != 1 {
		t.Errorf("stale records = %d, want 1", len(records))
	}
}

func TestExportHistory(t *testing.T) {
	f := newSessionFixture()
	resp := f.mount(t)

	data, filename, err := f.service.ExportHistory(context.Background(), resp.SessionID, testSession())
	if err != nil {
		t.Fatalf("ExportHistory() error = %v", err)
	}
	if len(data) == 0 {
		t.Error("export must return workbook bytes")
	}
	if filename != "attempts-go-fundamentals.xlsx" {
		t.Errorf("filename = %q", filename)
	}
}
