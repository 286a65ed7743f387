package validator

import (
	"fmt"

	"github.com/learnloop/assignment-engine/internal/models"
)

// ValidateAssignment checks the structural invariants an assignment
// must satisfy before the engine will present it:
//
//   - totalQuestions matches the question list
//   - question IDs are unique within the assignment
//   - every question has at least two options
//   - any answer key indexes into the question's options
//   - topic IDs are unique within the assignment
//
// Content failing these rules is treated exactly like a failed fetch.
func (v *Validator) ValidateAssignment(a *models.Assignment) ValidationErrors {
	var errors ValidationErrors

	if err := v.Validate(a); err != nil {
		errors = append(errors, err.(ValidationErrors)...)
	}

	if a.TotalQuestions != len(a.Questions) {
		errors = append(errors, ValidationError{
			Field:   "totalQuestions",
			Message: fmt.Sprintf("declared %d questions but found %d", a.TotalQuestions, len(a.Questions)),
			Value:   a.TotalQuestions,
			Rule:    "question_count",
		})
	}

	seenQuestions := make(map[int]bool, len(a.Questions))
	for i := range a.Questions {
		q := &a.Questions[i]
		if seenQuestions[q.QuestionID] {
			errors = append(errors, ValidationError{
				Field:   "questionId",
				Message: fmt.Sprintf("duplicate question id %d", q.QuestionID),
				Value:   q.QuestionID,
				Rule:    "unique_question_id",
			})
		}
		seenQuestions[q.QuestionID] = true

		if len(q.Options) < 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: fmt.Sprintf("question %d needs at least two options", q.QuestionID),
				Value:   len(q.Options),
				Rule:    "min_options",
			})
		}

		if q.CorrectAnswer != nil && (*q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options)) {
			errors = append(errors, ValidationError{
				Field:   "correctAnswer",
				Message: fmt.Sprintf("question %d answer key %d outside options", q.QuestionID, *q.CorrectAnswer),
				Value:   *q.CorrectAnswer,
				Rule:    "answer_key_bounds",
			})
		}
	}

	seenTopics := make(map[string]bool, len(a.Topics))
	for i := range a.Topics {
		t := &a.Topics[i]
		if seenTopics[t.TopicID] {
			errors = append(errors, ValidationError{
				Field:   "topicId",
				Message: fmt.Sprintf("duplicate topic id %q", t.TopicID),
				Value:   t.TopicID,
				Rule:    "unique_topic_id",
			})
		}
		seenTopics[t.TopicID] = true
	}

	return errors
}
