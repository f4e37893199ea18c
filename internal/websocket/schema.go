package websocket

import "github.com/examdeck/examdeck-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectAnswer Action = "select_answer"
	ActionNext         Action = "next"
	ActionPrevious     Action = "previous"
	ActionReveal       Action = "reveal"
	ActionFinalize     Action = "finalize"
	ActionReviewAll    Action = "review"
	ActionReviewWrong  Action = "review_wrong"
	ActionReset        Action = "reset"
)

// RequestPayload is a client message on the session stream. QuestionID
// and AnswerID are only meaningful for select_answer.
type RequestPayload struct {
	Action     Action `json:"action"`
	QuestionID int    `json:"question_id,omitempty"`
	AnswerID   int    `json:"answer_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	// EventState carries a full session snapshot; one is pushed after
	// every state change so the client re-renders.
	EventState Event = "state"
	EventError Event = "error"
)

// StateResponse wraps a session snapshot.
type StateResponse struct {
	Event Event                  `json:"event"`
	Data  *model.SessionSnapshot `json:"data"`
}

// ErrorResponse reports a failed client action.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}
