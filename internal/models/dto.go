package models

import "encoding/json"

// ===== UPSTREAM WIRE FORMAT =====
//
// Envelope and payload types for the platform API consumed by the
// engine. All requests carry a bearer Authorization header.

// APIEnvelope is the common response wrapper of the upstream services.
type APIEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AttemptListData is the payload of GET /api/assignments/{id}/attempts.
type AttemptListData struct {
	Attempts []AttemptRecord `json:"attempts"`
}

// SubmitPayload is the body of POST /api/assignments/{id}/submit.
type SubmitPayload struct {
	Answers   AnswerMap `json:"answers"`
	TimeSpent int       `json:"timeSpent"`
}

// ProgressPayload is the body of PUT /api/progress/student/{id}/assignment.
// Score is the percentage rounded to an integer; MaxScore is always 100.
type ProgressPayload struct {
	CourseID        string         `json:"courseId"`
	ModuleID        string         `json:"moduleId"`
	AssignmentID    string         `json:"assignmentId"`
	AssignmentTitle string         `json:"assignmentTitle"`
	Status          ProgressStatus `json:"status"`
	Score           int            `json:"score"`
	MaxScore        int            `json:"maxScore"`
	TimeSpent       int            `json:"timeSpent"`
}
