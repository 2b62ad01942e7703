package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/ran-copilot/internal/agent"
	"github.com/xela07ax/ran-copilot/internal/domain"
	"github.com/xela07ax/ran-copilot/internal/infra/auth"
)

type ChatService interface {
	Messages() []domain.ChatMessage
	Send(ctx context.Context, prompt string) ([]domain.ChatMessage, error)
	Session() agent.Session
	Reset()
}

type ChatHandler struct {
	service ChatService
	logger  *zap.Logger
}

func NewChatHandler(s ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{service: s, logger: logger.Named("chat-handler")}
}

type chatListResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// List GET /api/v1/chat
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatListResponse{
		SessionID: h.service.Session().ID,
		Messages:  h.service.Messages(),
	})
}

type SendRequest struct {
	Prompt string `json:"prompt"`
}

// Send POST /api/v1/chat. Сбой агента - это не ошибка запроса:
// в ответе пара с извинением, как и в ленте.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.service.Send(r.Context(), req.Prompt)
	if errors.Is(err, agent.ErrEmptyPrompt) {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if err != nil {
		h.logger.Info("chat turn answered with apology",
			zap.String("user_id", auth.UserID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": pair})
}

// Reset POST /api/v1/chat/reset
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	w.WriteHeader(http.StatusNoContent)
}
