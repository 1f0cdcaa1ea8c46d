package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"converse/infrastructure"
)

type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// GetHistory handles GET /api/messages/{otherId}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	otherID := mux.Vars(r)["otherId"]
	if otherID == "" {
		http.Error(w, "otherId is required", http.StatusBadRequest)
		return
	}

	messages, err := h.repo.History(r.Context(), userID, otherID)
	if err != nil {
		h.logger.Error("failed to load history",
			zap.String("user_id", userID), zap.String("other_id", otherID), zap.Error(err))
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
