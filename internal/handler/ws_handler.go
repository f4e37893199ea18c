package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/model"
	"github.com/examdeck/examdeck-backend/internal/service"
	ws "github.com/examdeck/examdeck-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session snapshots to the presentation adapter and
// accepts the same mutations as the HTTP surface.
type WSHandler struct {
	sessionService *service.SessionService
	hub            *ws.Hub
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		hub:            hub,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/exams/:exam_id/stream
// Subscribes to the exam's session stream. The current snapshot is
// pushed immediately, then again after every state change — including
// changes made over the HTTP surface.
func (h *WSHandler) SessionStream(c *gin.Context) {
	examID, err := strconv.Atoi(c.Param("exam_id"))
	if err != nil || examID < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	snap, err := h.sessionService.Open(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("exam_id", examID).Logger()
	wsLog.Info().Msg("Adapter connected")

	client := h.hub.Subscribe(examID, conn)
	defer h.hub.Unsubscribe(examID, client)

	// Initial render.
	if err := client.WriteState(&ws.StateResponse{Event: ws.EventState, Data: snap}); err != nil {
		return
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		h.handleAction(client, wsLog, examID, &msg)
	}
}

// handleAction dispatches one client action to the session service.
// Snapshots reach the client through the hub broadcast, so successful
// actions need no direct reply here.
func (h *WSHandler) handleAction(client *ws.Client, wsLog zerolog.Logger, examID int, msg *ws.RequestPayload) {
	ctx := context.Background()

	var (
		snap *model.SessionSnapshot
		err  error
	)

	switch msg.Action {
	case ws.ActionSelectAnswer:
		if msg.QuestionID < 1 || msg.AnswerID < 1 {
			client.WriteError("question_id and answer_id are required")
			return
		}
		snap, err = h.sessionService.SelectAnswer(ctx, examID, msg.QuestionID, msg.AnswerID)
	case ws.ActionNext:
		snap, err = h.sessionService.GoNext(ctx, examID)
	case ws.ActionPrevious:
		snap, err = h.sessionService.GoPrevious(ctx, examID)
	case ws.ActionReveal:
		snap, err = h.sessionService.Reveal(ctx, examID)
	case ws.ActionFinalize:
		snap, err = h.sessionService.Finalize(ctx, examID)
	case ws.ActionReviewAll:
		snap, err = h.sessionService.StartReviewAll(ctx, examID)
	case ws.ActionReviewWrong:
		snap, err = h.sessionService.StartReviewWrong(ctx, examID)
	case ws.ActionReset:
		snap, err = h.sessionService.Reset(ctx, examID)
	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		client.WriteError("unknown action: " + string(msg.Action))
		return
	}

	if err != nil {
		wsLog.Error().Err(err).Str("action", string(msg.Action)).Msg("Action failed")
		client.WriteError("action failed")
		return
	}

	// No-op mutations produce no broadcast; echo the snapshot so the
	// client still re-renders deterministically after every action.
	if err := client.WriteState(&ws.StateResponse{Event: ws.EventState, Data: snap}); err != nil {
		wsLog.Debug().Err(err).Msg("Write failed")
	}
}
