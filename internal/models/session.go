package models

// SessionView is the current view of a study session.
type SessionView string

const (
	ViewStudy   SessionView = "study"
	ViewTest    SessionView = "test"
	ViewResults SessionView = "results"

	// ViewError is the terminal display state entered when neither the
	// remote content service nor the fallback catalog has the requested
	// assignment. Distinct from the three functional views.
	ViewError SessionView = "error"
)

// SessionContext carries the authenticated learner identity and the
// bearer token used for upstream calls. It is injected explicitly into
// the engine rather than read from ambient storage.
type SessionContext struct {
	LearnerID string `json:"learner_id"`
	Token     string `json:"-"`
}

// ProgressStatus is the status reported to the progress tracker.
type ProgressStatus string

const (
	ProgressGraded    ProgressStatus = "graded"
	ProgressSubmitted ProgressStatus = "submitted"
)
