package events

import (
	"context"
	"time"
)

// Event types published on the attempt topic.
const (
	TypeAttemptGraded         = "attempt.graded"
	TypeAttemptGradedDegraded = "attempt.graded_degraded"
)

// AttemptEvent is the envelope for attempt lifecycle events. Consumers
// are external (analytics, notifications); publishing is fire-and-forget
// and never blocks the learner flow.
type AttemptEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// AttemptGradedData is the payload of attempt.graded and
// attempt.graded_degraded events.
type AttemptGradedData struct {
	LearnerID     string  `json:"learner_id"`
	AssignmentID  string  `json:"assignment_id"`
	AttemptNumber int     `json:"attempt_number"`
	Score         int     `json:"score"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
	Provenance    string  `json:"provenance"`
	TimeSpent     int     `json:"time_spent"`
}

// EventPublisher publishes attempt events to the configured transport.
type EventPublisher interface {
	Publish(ctx context.Context, event *AttemptEvent) error
	Close() error
}
