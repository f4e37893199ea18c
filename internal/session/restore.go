package session

import (
	"encoding/json"
	"fmt"

	"github.com/examdeck/examdeck-backend/internal/model"
)

// storedState is the persisted wire shape, including fields that only
// ever appear in records written by older versions.
type storedState struct {
	model.SessionState
	// LegacyRevealed was a single whole-exam flag before reveal became
	// per-question.
	LegacyRevealed bool `json:"revealed,omitempty"`
}

// Restore rebuilds a session from a persisted record, running the
// migration steps exactly once at load. A record that cannot be parsed
// is reported as an error so the caller can discard it and start
// fresh; a stored record never becomes a fatal condition.
func Restore(exam *model.ExamDefinition, raw []byte) (*Session, error) {
	var stored storedState
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}

	state := stored.SessionState
	state.ExamID = exam.ExamID
	if state.Answers == nil {
		state.Answers = map[int][]int{}
	}
	if state.Revealed == nil {
		state.Revealed = map[int]bool{}
	}

	// Migration: expand the legacy whole-exam reveal flag into the
	// per-question map, then drop it.
	if stored.LegacyRevealed {
		for i := range exam.Questions {
			state.Revealed[exam.Questions[i].ID] = true
		}
	}

	sanitize(&state, exam)

	mode := model.ModeInProgress
	switch {
	case state.ReviewMode == model.ReviewModeWrong:
		mode = model.ModeReviewingWrong
	case state.Finalized:
		// A finalized session always reopens on the summary.
		mode = model.ModeFinalizedSummary
	}

	return &Session{exam: exam, state: &state, mode: mode}, nil
}

// sanitize re-establishes the state invariants against the current
// exam definition: the index stays inside the question range, stored
// selections reference only known questions and answers, and no empty
// selection list survives.
func sanitize(state *model.SessionState, exam *model.ExamDefinition) {
	if state.Index < 0 || state.Index >= len(exam.Questions) {
		state.Index = 0
	}

	for qid, selected := range state.Answers {
		idx := exam.QuestionIndex(qid)
		if idx < 0 {
			delete(state.Answers, qid)
			continue
		}
		q := &exam.Questions[idx]
		kept := selected[:0]
		for _, aid := range selected {
			if q.HasAnswer(aid) {
				kept = append(kept, aid)
			}
		}
		if !q.IsMulti() && len(kept) > 1 {
			kept = kept[:1]
		}
		if len(kept) == 0 {
			delete(state.Answers, qid)
		} else {
			state.Answers[qid] = kept
		}
	}

	for qid, revealed := range state.Revealed {
		if !revealed || exam.QuestionIndex(qid) < 0 {
			delete(state.Revealed, qid)
		}
	}
}
