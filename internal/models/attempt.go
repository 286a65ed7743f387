package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnswerMap maps question ID to the selected option index. Unanswered
// questions are simply absent. Marshals with string keys on the wire.
type AnswerMap map[int]int

// Clone returns an independent copy of the map.
func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GradingProvenance records which grading path produced a TestResult.
type GradingProvenance string

const (
	GradedRemote GradingProvenance = "remote"
	GradedLocal  GradingProvenance = "local"
)

// TestResult is the outcome of one submitted attempt.
type TestResult struct {
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	Percentage     float64           `json:"percentage"`
	Passed         bool              `json:"passed"`
	Message        string            `json:"message"`
	AttemptNumber  int               `json:"attemptNumber"`
	Provenance     GradingProvenance `json:"provenance"`
}

// AttemptRecord is one persisted history entry, owned by the remote
// attempt store. Append-only; the engine never edits or deletes these.
type AttemptRecord struct {
	ID               string    `json:"id"`
	AttemptNumber    int       `json:"attemptNumber"`
	Score            int       `json:"score"`
	TotalQuestions   int       `json:"totalQuestions"`
	Percentage       float64   `json:"percentage"`
	Passed           bool      `json:"passed"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
	CreatedAt        time.Time `json:"createdAt"`
}

// LocalAttemptRecord is the journal row written when an attempt is
// graded locally because the remote grading service was unreachable.
// These records are not reconciled with the remote history; the journal
// exists so the gap is observable rather than silent.
type LocalAttemptRecord struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	LearnerID        string         `json:"learner_id" gorm:"not null;index:idx_journal_learner_assignment;size:255"`
	AssignmentID     string         `json:"assignment_id" gorm:"not null;index:idx_journal_learner_assignment;size:255"`
	AttemptNumber    int            `json:"attempt_number" gorm:"not null"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"total_questions"`
	Percentage       float64        `json:"percentage"`
	Passed           bool           `json:"passed"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	Answers          datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	CreatedAt        time.Time      `json:"created_at"`
}
