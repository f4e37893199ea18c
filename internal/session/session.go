// Package session implements the exam-taking state machine: answer
// selection, navigation, reveal, finalization and the review-wrong
// sub-mode. A Session mutates its state in memory only; the caller
// owns persistence and re-rendering after every mutation.
package session

import (
	"github.com/examdeck/examdeck-backend/internal/model"
	"github.com/examdeck/examdeck-backend/internal/scoring"
)

// Session binds one exam definition to its mutable attempt state and
// the current view mode. It replaces the ambient "current exam/state"
// globals of earlier designs: whoever orchestrates the UI owns it and
// passes it around explicitly.
type Session struct {
	exam  *model.ExamDefinition
	state *model.SessionState
	mode  model.Mode
}

// New creates a fresh in-progress session at the first question.
func New(exam *model.ExamDefinition) *Session {
	return &Session{
		exam:  exam,
		state: model.NewSessionState(exam.ExamID),
		mode:  model.ModeInProgress,
	}
}

// Exam returns the immutable exam this session runs against.
func (s *Session) Exam() *model.ExamDefinition { return s.exam }

// State returns the live session state. Callers must treat it as
// read-only; all mutation goes through the operations below.
func (s *Session) State() *model.SessionState { return s.state }

// Mode returns the current view state. A finalized session reopens in
// the summary; review-all deliberately drops back to the question view
// without clearing the finalized flag.
func (s *Session) Mode() model.Mode { return s.mode }

// CurrentQuestion returns the question at the navigation position, or
// nil for an exam without questions.
func (s *Session) CurrentQuestion() *model.Question {
	return s.exam.QuestionAt(s.state.Index)
}

// Summary recomputes the score tally from the current state.
func (s *Session) Summary() model.Summary {
	return scoring.ComputeSummary(s.exam, s.state)
}

// SelectAnswer records answerID for questionID and reports whether the
// state changed. Revealed questions are locked; unknown question or
// answer ids are ignored. Multi-select questions toggle membership
// (dropping the map key when the last selection goes away), single
// select replaces the selection. Answering the last question of the
// full sequence finalizes the session — the only automatic trigger.
func (s *Session) SelectAnswer(questionID, answerID int) bool {
	idx := s.exam.QuestionIndex(questionID)
	if idx < 0 {
		return false
	}
	q := &s.exam.Questions[idx]
	if s.state.Revealed[q.ID] {
		return false
	}
	if !q.HasAnswer(answerID) {
		return false
	}

	if q.IsMulti() {
		s.toggleSelection(q.ID, answerID)
	} else {
		s.state.Answers[q.ID] = []int{answerID}
	}

	if idx == len(s.exam.Questions)-1 && len(s.state.Answers[q.ID]) > 0 {
		s.finalize()
	}
	return true
}

func (s *Session) toggleSelection(questionID, answerID int) {
	selected := s.state.Answers[questionID]
	for i, id := range selected {
		if id == answerID {
			selected = append(selected[:i], selected[i+1:]...)
			if len(selected) == 0 {
				delete(s.state.Answers, questionID)
			} else {
				s.state.Answers[questionID] = selected
			}
			return
		}
	}
	s.state.Answers[questionID] = append(selected, answerID)
}

// GoNext advances the navigation position. In review-wrong mode the
// step happens inside the freshly recomputed wrong-index list (answers
// may have changed during review, so it is never cached); stepping
// past its end — or finding it empty — finalizes. In normal mode the
// last question finalizes instead of moving.
func (s *Session) GoNext() bool {
	if len(s.exam.Questions) == 0 {
		return false
	}

	if s.state.ReviewMode == model.ReviewModeWrong {
		wrong := scoring.WrongIndices(s.exam, s.state)
		if len(wrong) == 0 {
			s.finalize()
			return true
		}
		pos := indexOf(wrong, s.state.Index)
		if pos < 0 {
			pos = 0
		}
		if pos < len(wrong)-1 {
			s.state.Index = wrong[pos+1]
			return true
		}
		s.finalize()
		return true
	}

	if s.state.Index < len(s.exam.Questions)-1 {
		s.state.Index++
		return true
	}
	s.finalize()
	return true
}

// GoPrevious retreats the navigation position. Stepping before the
// first wrong index (or the first question) is a no-op.
func (s *Session) GoPrevious() bool {
	if len(s.exam.Questions) == 0 {
		return false
	}

	if s.state.ReviewMode == model.ReviewModeWrong {
		wrong := scoring.WrongIndices(s.exam, s.state)
		if len(wrong) == 0 {
			return false
		}
		pos := indexOf(wrong, s.state.Index)
		if pos < 0 {
			pos = 0
		}
		if pos > 0 {
			s.state.Index = wrong[pos-1]
			return true
		}
		return false
	}

	if s.state.Index > 0 {
		s.state.Index--
		return true
	}
	return false
}

// Reveal discloses the correct answers of the current question and
// locks it against further selection. Idempotent; a reveal is never
// undone.
func (s *Session) Reveal() bool {
	q := s.CurrentQuestion()
	if q == nil || s.state.Revealed[q.ID] {
		return false
	}
	s.state.Revealed[q.ID] = true
	return true
}

// Finalize marks the attempt complete and moves to the summary view.
func (s *Session) Finalize() bool {
	s.finalize()
	return true
}

func (s *Session) finalize() {
	s.state.Finalized = true
	s.state.ReviewMode = ""
	s.mode = model.ModeFinalizedSummary
}

// StartReviewAll leaves the summary and walks the whole exam again
// from the first question. Only available from the summary view.
func (s *Session) StartReviewAll() bool {
	if s.mode != model.ModeFinalizedSummary {
		return false
	}
	s.state.ReviewMode = ""
	s.state.Index = 0
	s.mode = model.ModeInProgress
	return true
}

// StartReviewWrong enters the review filter over currently
// incorrect-or-unanswered questions, starting at the first of them.
// With nothing wrong it behaves like StartReviewAll: back to the
// question view, no filter set. Only available from the summary view.
func (s *Session) StartReviewWrong() bool {
	if s.mode != model.ModeFinalizedSummary {
		return false
	}
	wrong := scoring.WrongIndices(s.exam, s.state)
	if len(wrong) == 0 {
		return s.StartReviewAll()
	}
	s.state.ReviewMode = model.ReviewModeWrong
	s.state.Index = wrong[0]
	s.mode = model.ModeReviewingWrong
	return true
}

// Reset discards all progress and starts over. The caller is expected
// to delete the persisted record alongside.
func (s *Session) Reset() bool {
	s.state = model.NewSessionState(s.exam.ExamID)
	s.mode = model.ModeInProgress
	return true
}

// Snapshot builds the render model for the presentation adapter. The
// state is cloned so the snapshot can be encoded on another goroutine
// while the session keeps mutating.
func (s *Session) Snapshot() *model.SessionSnapshot {
	state := s.state.Clone()
	snap := &model.SessionSnapshot{
		ExamID: s.exam.ExamID,
		Mode:   s.mode,
		Progress: model.Progress{
			Index: state.Index,
			Total: len(s.exam.Questions),
		},
		State: state,
	}

	if q := s.CurrentQuestion(); q != nil {
		view := &model.QuestionView{
			ID:       q.ID,
			Text:     q.Text,
			Multi:    q.IsMulti(),
			Answers:  q.Answers,
			Selected: state.Answers[q.ID],
			Revealed: state.Revealed[q.ID],
		}
		if view.Revealed || state.Finalized {
			view.CorrectAnswerIDs = q.CorrectAnswerIDs
		}
		snap.Question = view
	}

	if state.Finalized {
		sum := s.Summary()
		snap.Summary = &sum
	}
	return snap
}

func indexOf(list []int, v int) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
