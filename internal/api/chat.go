package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/solsage/solsage/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleChat is the request/reply chat endpoint. Every accepted message
// yields exactly one reply, including the fallback for a failed
// explanation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var request models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if request.SenderID == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "sender_id is required", nil)
		return
	}
	if request.Text == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "text is required", nil)
		return
	}

	reply := s.dispatch(r.Context(), request.SenderID, request.Text)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(reply)
}

// handleWebSocket upgrades the connection and runs a sequential
// message/reply loop. The sender identity is taken from the sender_id
// query parameter, or generated for the lifetime of the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	senderID := r.URL.Query().Get("sender_id")
	if senderID == "" {
		senderID = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("websocket connected", "sender", senderID)

	for {
		var inbound struct {
			Text string `json:"text"`
		}
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "sender", senderID, "error", err)
			}
			return
		}
		if inbound.Text == "" {
			continue
		}

		reply := s.dispatch(r.Context(), senderID, inbound.Text)
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Warn("websocket write failed", "sender", senderID, "error", err)
			return
		}
	}
}

// dispatch runs the core and wraps its single reply in a chat envelope.
// A propagated failure from the core still produces one reply.
func (s *Server) dispatch(ctx context.Context, senderID, text string) models.ChatReply {
	replyText, err := s.core.HandleMessage(ctx, senderID, text)
	if err != nil {
		s.logger.Error("message handling failed", "sender", senderID, "error", err)
		replyText = msgGenerationFailed
	}

	return models.ChatReply{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Text:      replyText,
		Timestamp: time.Now().UTC(),
	}
}
