package ai

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"converse/infrastructure"
)

type Handler struct {
	service *Service
	bots    *BotRepository
	logger  *zap.Logger
}

func NewHandler(service *Service, bots *BotRepository, logger *zap.Logger) *Handler {
	return &Handler{service: service, bots: bots, logger: logger}
}

// CreateBot handles POST /api/ai/bots.
func (h *Handler) CreateBot(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Description == "" {
		http.Error(w, "name and description are required", http.StatusBadRequest)
		return
	}

	bot, err := h.bots.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("failed to create ai bot", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to create ai bot", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"aiBot": bot})
}

// ListBots handles GET /api/ai/bots.
func (h *Handler) ListBots(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	bots, err := h.bots.ListByCreator(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list ai bots", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to list ai bots", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"aiBots": bots})
}

// Chat handles POST /api/ai/chat. The response carries only the persisted
// user message; the reply arrives over the WebSocket later, if at all.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		AIBotID string `json:"aiBotId"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userMessage, err := h.service.Chat(r.Context(), userID, req.AIBotID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, infrastructure.ErrInvalidInput):
			http.Error(w, "ai bot id and message are required", http.StatusBadRequest)
		case errors.Is(err, infrastructure.ErrBotNotFound):
			http.Error(w, "ai bot not found", http.StatusNotFound)
		default:
			h.logger.Error("failed to chat with ai",
				zap.String("user_id", userID), zap.String("bot_id", req.AIBotID), zap.Error(err))
			http.Error(w, "failed to chat with ai", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, map[string]interface{}{"userMessage": userMessage})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
