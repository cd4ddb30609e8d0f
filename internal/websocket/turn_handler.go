package websocket

import (
	"context"
	"encoding/json"
	"time"

	"ai-studymate-be/internal/dto"
	"ai-studymate-be/internal/pkg/logger"
	"ai-studymate-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait   = 10 * time.Second
	turnTimeout = 5 * time.Minute
)

// Frame is one server-to-client streaming message. Type is "token" while the
// answer is being generated, then "done" with the full turn response, or
// "error" if the turn failed.
type Frame struct {
	Type    string                   `json:"type"`
	Token   string                   `json:"token,omitempty"`
	Data    *dto.ProcessTurnResponse `json:"data,omitempty"`
	Message string                   `json:"message,omitempty"`
}

// TurnHandler streams chat turns over a websocket connection: the client
// sends one ProcessTurnRequest per message and receives token frames followed
// by a final done frame carrying the citations.
type TurnHandler struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewTurnHandler(chatService service.IChatService, logger logger.ILogger) *TurnHandler {
	return &TurnHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Serve runs the per-connection loop. Writes stay on this goroutine; the
// token callback runs synchronously inside ProcessTurnStream, so frames are
// never interleaved.
func (h *TurnHandler) Serve(conn *websocket.Conn, userId uuid.UUID) {
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket", "read error", map[string]interface{}{
					"user_id": userId.String(),
					"error":   err.Error(),
				})
			}
			return
		}

		var req dto.ProcessTurnRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			h.writeFrame(conn, Frame{Type: "error", Message: "malformed turn request"})
			continue
		}

		h.runTurn(conn, userId, &req)
	}
}

func (h *TurnHandler) runTurn(conn *websocket.Conn, userId uuid.UUID, req *dto.ProcessTurnRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	resp, err := h.chatService.ProcessTurnStream(ctx, userId, req, func(token string) {
		h.writeFrame(conn, Frame{Type: "token", Token: token})
	})
	if err != nil {
		h.writeFrame(conn, Frame{Type: "error", Message: err.Error()})
		return
	}

	h.writeFrame(conn, Frame{Type: "done", Data: resp})
}

func (h *TurnHandler) writeFrame(conn *websocket.Conn, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Warn("Websocket", "write error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
