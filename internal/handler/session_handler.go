package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examdeck/examdeck-backend/internal/model"
	"github.com/examdeck/examdeck-backend/internal/response"
	"github.com/examdeck/examdeck-backend/internal/service"
	"github.com/examdeck/examdeck-backend/internal/validator"
)

// SessionHandler exposes the exam-taking endpoints: opening a session,
// answering, navigating, revealing, finalizing, reviewing, resetting.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// OpenSession godoc
// GET /api/v1/exams/:exam_id/session
// Loads (or creates) the session and returns its snapshot. A finalized
// session opens on the summary.
func (h *SessionHandler) OpenSession(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (*model.SessionSnapshot, error) {
		return h.sessionService.Open(ctx, examID)
	})
}

// SelectAnswer godoc
// POST /api/v1/exams/:exam_id/session/answer
// Records (or toggles) an answer for a question. Locked or unknown
// targets leave the state untouched.
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	h.respond(c, func(ctx context.Context) (*model.SessionSnapshot, error) {
		return h.sessionService.SelectAnswer(ctx, examID, req.QuestionID, req.AnswerID)
	})
}

// GoNext godoc
// POST /api/v1/exams/:exam_id/session/next
func (h *SessionHandler) GoNext(c *gin.Context) {
	h.mutate(c, h.sessionService.GoNext)
}

// GoPrevious godoc
// POST /api/v1/exams/:exam_id/session/previous
func (h *SessionHandler) GoPrevious(c *gin.Context) {
	h.mutate(c, h.sessionService.GoPrevious)
}

// Reveal godoc
// POST /api/v1/exams/:exam_id/session/reveal
// Shows the current question's correct answers and locks it.
func (h *SessionHandler) Reveal(c *gin.Context) {
	h.mutate(c, h.sessionService.Reveal)
}

// Finalize godoc
// POST /api/v1/exams/:exam_id/session/finalize
func (h *SessionHandler) Finalize(c *gin.Context) {
	h.mutate(c, h.sessionService.Finalize)
}

// StartReviewAll godoc
// POST /api/v1/exams/:exam_id/session/review
func (h *SessionHandler) StartReviewAll(c *gin.Context) {
	h.mutate(c, h.sessionService.StartReviewAll)
}

// StartReviewWrong godoc
// POST /api/v1/exams/:exam_id/session/review-wrong
func (h *SessionHandler) StartReviewWrong(c *gin.Context) {
	h.mutate(c, h.sessionService.StartReviewWrong)
}

// Reset godoc
// POST /api/v1/exams/:exam_id/session/reset
// Discards the stored record and starts a fresh attempt.
func (h *SessionHandler) Reset(c *gin.Context) {
	h.mutate(c, h.sessionService.Reset)
}

// GetSummary godoc
// GET /api/v1/exams/:exam_id/session/summary
func (h *SessionHandler) GetSummary(c *gin.Context) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	summary, err := h.sessionService.Summary(c.Request.Context(), examID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// mutate runs a parameterless session operation and returns the
// resulting snapshot.
func (h *SessionHandler) mutate(c *gin.Context, op func(context.Context, int) (*model.SessionSnapshot, error)) {
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (*model.SessionSnapshot, error) {
		return op(ctx, examID)
	})
}

func (h *SessionHandler) respond(c *gin.Context, run func(context.Context) (*model.SessionSnapshot, error)) {
	snap, err := run(c.Request.Context())
	if err != nil {
		failSessionError(c, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

func failSessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExamNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// examIDParam parses the :exam_id path parameter, failing the request
// on malformed input.
func examIDParam(c *gin.Context) (int, bool) {
	examID, err := strconv.Atoi(c.Param("exam_id"))
	if err != nil || examID < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return examID, true
}
