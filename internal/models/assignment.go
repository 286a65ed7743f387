package models

// ContentProvenance records which source supplied an assignment.
type ContentProvenance string

const (
	ContentRemote   ContentProvenance = "remote"
	ContentFallback ContentProvenance = "fallback"
)

// Topic is a study unit inside an assignment. Topics are purely
// presentational and carry no grading responsibility.
type Topic struct {
	TopicID  string   `json:"topicId" validate:"required"`
	Title    string   `json:"title" validate:"required"`
	Content  string   `json:"content"`
	Examples []string `json:"examples"`
	Syntax   *string  `json:"syntax,omitempty"`
}

// Question is a multiple-choice question. CorrectAnswer is present only
// when the question can be graded locally; nil means remote-only grading.
type Question struct {
	QuestionID    int      `json:"questionId"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"min=2"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
}

// HasAnswerKey reports whether the question carries a local answer key.
func (q *Question) HasAnswerKey() bool {
	return q.CorrectAnswer != nil
}

// Assignment combines study topics with a question bank. The JSON field
// names follow the upstream content-service wire format, which the
// embedded fallback catalog mirrors.
type Assignment struct {
	AssignmentID      string     `json:"assignmentId" validate:"required"`
	CourseID          *string    `json:"courseId"`
	ModuleID          *string    `json:"moduleId"`
	Title             string     `json:"title" validate:"required"`
	Description       string     `json:"description"`
	Topics            []Topic    `json:"topics" validate:"dive"`
	Questions         []Question `json:"questions" validate:"dive"`
	TotalQuestions    int        `json:"totalQuestions"`
	PassingPercentage float64    `json:"passingPercentage" validate:"passing_percentage"`
}

// HasFullAnswerKey reports whether every question carries a correct
// answer, i.e. whether the assignment is gradable without the remote
// grading service.
func (a *Assignment) HasFullAnswerKey() bool {
	if len(a.Questions) == 0 {
		return true
	}
	for i := range a.Questions {
		if !a.Questions[i].HasAnswerKey() {
			return false
		}
	}
	return true
}

// QuestionByID returns the question with the given ID, or nil.
func (a *Assignment) QuestionByID(id int) *Question {
	for i := range a.Questions {
		if a.Questions[i].QuestionID == id {
			return &a.Questions[i]
		}
	}
	return nil
}

// TopicIndex returns the position of the topic with the given ID, or -1.
func (a *Assignment) TopicIndex(id string) int {
	for i := range a.Topics {
		if a.Topics[i].TopicID == id {
			return i
		}
	}
	return -1
}
