package services

import (
	"fmt"

	"github.com/learnloop/assignment-engine/internal/models"
)

// Score computes the raw score, percentage and pass flag for an answer
// map against an assignment's answer key. Pure; both grading paths must
// agree with it numerically.
//
// Questions without a local answer key can never be credited here, so
// callers only invoke local grading when Assignment.HasFullAnswerKey().
func Score(a *models.Assignment, answers models.AnswerMap) (score int, percentage float64, passed bool) {
	for i := range a.Questions {
		q := &a.Questions[i]
		if !q.HasAnswerKey() {
			continue
		}
		if selected, ok := answers[q.QuestionID]; ok && selected == *q.CorrectAnswer {
			score++
		}
	}

	total := len(a.Questions)
	if total > 0 {
		percentage = 100 * float64(score) / float64(total)
	}
	passed = percentage >= a.PassingPercentage
	return score, percentage, passed
}

// GradeLocally builds a complete TestResult for the offline grading
// path. The message is deliberately distinct from remote-graded
// messages; it is the only caller-visible difference between the paths.
func GradeLocally(a *models.Assignment, answers models.AnswerMap, attemptNumber int) *models.TestResult {
	score, percentage, passed := Score(a, answers)

	message := fmt.Sprintf("Graded locally: %d of %d correct.", score, len(a.Questions))
	if passed {
		message += " You passed."
	} else {
		message += " You did not reach the passing threshold."
	}

	return &models.TestResult{
		Score:          score,
		TotalQuestions: len(a.Questions),
		Percentage:     percentage,
		Passed:         passed,
		Message:        message,
		AttemptNumber:  attemptNumber,
		Provenance:     models.GradedLocal,
	}
}
