package services

import (
	"context"

	"github.com/learnloop/assignment-engine/internal/models"
)

// journaledAttempts counts the learner's locally graded attempts for
// this assignment, so attempt numbers keep climbing across sessions
// even when the remote history never saw them. Best effort: without a
// journal, or on a read failure, counting starts at zero.
func (s *sessionService) journaledAttempts(ctx context.Context, assignmentID string, sess models.SessionContext) int {
	if s.journal == nil {
		return 0
	}
	count, err := s.journal.CountByAssignment(ctx, sess.LearnerID, assignmentID)
	if err != nil {
		s.logger.Warn("journal count failed, starting local attempt count at zero",
			"assignment_id", assignmentID,
			"learner_id", sess.LearnerID,
			"error", err)
		return 0
	}
	return int(count)
}

// lookup resolves a session by id and verifies ownership.
func (s *sessionService) lookup(sessionID string, sess models.SessionContext) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if st.learnerID != sess.LearnerID {
		return nil, NewPermissionError(sess.LearnerID, sessionID)
	}
	return st, nil
}

// moveTopic shifts the topic pointer by delta, clamped to the topic
// list. Moving past either end is a no-op, not an error.
func (s *sessionService) moveTopic(sessionID string, sess models.SessionContext, delta int) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewStudy {
		return nil, NewTransitionError(st.view, "navigate_topic")
	}

	st.topicIndex = clamp(st.topicIndex+delta, 0, len(st.assignment.Topics)-1)

	return s.snapshot(st, ""), nil
}

// moveQuestion shifts the question pointer by delta, clamped to the
// question list.
func (s *sessionService) moveQuestion(sessionID string, sess models.SessionContext, delta int) (*SessionResponse, error) {
	st, err := s.lookup(sessionID, sess)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.view != models.ViewTest {
		return nil, NewTransitionError(st.view, "navigate_question")
	}

	st.questionIndex = clamp(st.questionIndex+delta, 0, len(st.assignment.Questions)-1)

	return s.snapshot(st, ""), nil
}

// refreshHistory fetches the remote attempt history for a live session.
// A failed fetch keeps whatever history was last known; a session torn
// down before the fetch completes simply discards the outcome.
func (s *sessionService) refreshHistory(sessionID string) {
	s.mu.RLock()
	st, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || st.assignment == nil {
		return
	}

	records, err := s.history.List(context.Background(), st.assignment.AssignmentID, st.sess)
	if err != nil {
		s.logger.Warn("background history refresh failed",
			"session_id", sessionID,
			"assignment_id", st.assignment.AssignmentID,
			"error", err)
		return
	}

	s.mu.RLock()
	_, ok = s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}

	st.mu.Lock()
	st.attempts = records
	st.mu.Unlock()
}

// snapshot projects the session state into a response. Caller holds
// st.mu. assignmentID is only consulted when no assignment loaded
// (the error view after a failed mount).
func (s *sessionService) snapshot(st *sessionState, assignmentID string) *SessionResponse {
	resp := &SessionResponse{
		SessionID:     st.id,
		View:          st.view,
		AssignmentID:  assignmentID,
		AnsweredCount: len(st.answers),
		Error:         st.errMessage,
	}

	if st.assignment == nil {
		return resp
	}

	a := st.assignment
	resp.AssignmentID = a.AssignmentID
	resp.Title = a.Title
	resp.Description = a.Description
	resp.PassingPercentage = a.PassingPercentage
	resp.TotalQuestions = len(a.Questions)

	switch st.view {
	case models.ViewStudy:
		resp.Topic = topicView(a, st.topicIndex)
	case models.ViewTest:
		resp.Question = questionView(a, st.questionIndex, st.answers)
	case models.ViewResults:
		resp.Result = st.result
	}

	return resp
}

func topicView(a *models.Assignment, index int) *TopicView {
	if len(a.Topics) == 0 {
		return nil
	}
	return &TopicView{
		Topic:   a.Topics[index],
		Index:   index,
		Total:   len(a.Topics),
		IsFirst: index == 0,
		IsLast:  index == len(a.Topics)-1,
	}
}

func questionView(a *models.Assignment, index int, answers models.AnswerMap) *QuestionView {
	if len(a.Questions) == 0 {
		return nil
	}
	q := a.Questions[index]
	view := &QuestionView{
		QuestionID: q.QuestionID,
		Prompt:     q.Prompt,
		Options:    q.Options,
		Index:      index,
		Total:      len(a.Questions),
		IsFirst:    index == 0,
		IsLast:     index == len(a.Questions)-1,
	}
	if sel, ok := answers[q.QuestionID]; ok {
		selected := sel
		view.Selected = &selected
	}
	return view
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
