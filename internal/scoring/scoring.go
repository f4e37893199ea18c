// Package scoring contains the pure correctness and summary functions
// over an exam definition and a session state. It holds no state of
// its own; everything here is re-derivable at any time.
package scoring

import (
	"math"

	"github.com/examdeck/examdeck-backend/internal/model"
)

// IsCorrect is the one correctness predicate shared by summary
// computation and review navigation: the selection for q must exist
// and equal the correct-answer set exactly. An absent selection is
// always incorrect.
func IsCorrect(q *model.Question, state *model.SessionState) bool {
	selected, ok := state.Answers[q.ID]
	if !ok {
		return false
	}
	return equalIDSets(selected, q.CorrectAnswerIDs)
}

// WrongIndices returns the ordered positions, in the full question
// sequence, of every question that is currently incorrect or
// unanswered.
func WrongIndices(exam *model.ExamDefinition, state *model.SessionState) []int {
	var wrong []int
	for i := range exam.Questions {
		if !IsCorrect(&exam.Questions[i], state) {
			wrong = append(wrong, i)
		}
	}
	return wrong
}

// ComputeSummary tallies the attempt. Wrong includes unanswered
// questions; percent is correct/total rounded half away from zero,
// and 0 for an exam without questions.
func ComputeSummary(exam *model.ExamDefinition, state *model.SessionState) model.Summary {
	total := len(exam.Questions)

	correct := 0
	for i := range exam.Questions {
		if IsCorrect(&exam.Questions[i], state) {
			correct++
		}
	}

	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return model.Summary{
		CorrectCount: correct,
		WrongCount:   total - correct,
		Percent:      percent,
	}
}

// equalIDSets compares two id lists as sets, order-insensitive.
func equalIDSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
