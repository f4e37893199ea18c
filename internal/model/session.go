package model

// Mode enumerates the session view states.
type Mode string

const (
	ModeInProgress       Mode = "in_progress"
	ModeFinalizedSummary Mode = "finalized_summary"
	ModeReviewingWrong   Mode = "reviewing_wrong"
)

// ReviewMode tags a transient navigation filter on a session.
type ReviewMode string

// ReviewModeWrong restricts navigation to currently
// incorrect-or-unanswered questions.
const ReviewModeWrong ReviewMode = "wrong"

// SessionState is the persisted, mutable state of one exam attempt.
// One record exists per exam; it survives reloads through the store.
type SessionState struct {
	ExamID int `json:"exam_id"`
	// Index is a position in the full question sequence, also while a
	// review filter is active.
	Index int `json:"index"`
	// Answers maps question id to the selected answer ids. A key is
	// absent when the question is unanswered; an empty list is never
	// stored.
	Answers map[int][]int `json:"answers"`
	// Revealed marks questions whose correct answers have been shown.
	// Entries are only ever added, never removed.
	Revealed   map[int]bool `json:"revealed_questions"`
	Finalized  bool         `json:"finalized"`
	ReviewMode ReviewMode   `json:"review_mode,omitempty"`
}

// Clone returns a deep copy detached from the live maps, safe to hand
// to another goroutine for rendering or encoding.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.Answers = make(map[int][]int, len(s.Answers))
	for qid, selected := range s.Answers {
		c.Answers[qid] = append([]int(nil), selected...)
	}
	c.Revealed = make(map[int]bool, len(s.Revealed))
	for qid, revealed := range s.Revealed {
		c.Revealed[qid] = revealed
	}
	return &c
}

// NewSessionState returns a fresh, empty state for the given exam.
func NewSessionState(examID int) *SessionState {
	return &SessionState{
		ExamID:   examID,
		Answers:  map[int][]int{},
		Revealed: map[int]bool{},
	}
}

// Summary is the aggregate result of a finished attempt. Unanswered
// questions count as wrong; there is no separate bucket for them.
type Summary struct {
	CorrectCount int `json:"correct_count"`
	WrongCount   int `json:"wrong_count"`
	Percent      int `json:"percent"`
}

// Progress locates the session within the full question sequence.
type Progress struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// QuestionView is the current question as rendered to the adapter.
// Correct answer ids are only disclosed once the question has been
// revealed or the session finalized.
type QuestionView struct {
	ID               int            `json:"id"`
	Text             string         `json:"question"`
	Multi            bool           `json:"multi"`
	Answers          []AnswerOption `json:"answers"`
	Selected         []int          `json:"selected,omitempty"`
	Revealed         bool           `json:"revealed"`
	CorrectAnswerIDs []int          `json:"correct_answer_ids,omitempty"`
}

// SessionSnapshot is the full render model pushed to the presentation
// adapter after every state change.
type SessionSnapshot struct {
	ExamID   int           `json:"exam_id"`
	Mode     Mode          `json:"mode"`
	Progress Progress      `json:"progress"`
	Question *QuestionView `json:"question,omitempty"`
	State    *SessionState `json:"state"`
	Summary  *Summary      `json:"summary,omitempty"`
}

// AnswerRequest is the payload for selecting (or toggling) an answer.
type AnswerRequest struct {
	QuestionID int `json:"question_id" binding:"required,min=1"`
	AnswerID   int `json:"answer_id" binding:"required,min=1"`
}
