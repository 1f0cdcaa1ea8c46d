package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"converse/infrastructure"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// List handles GET /api/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		http.Error(w, "failed to list users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, users)
}

// GetProfile handles GET /api/users/me.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, infrastructure.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get profile", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to get profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, u)
}

// UpdateProfile handles PUT /api/users/me.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := infrastructure.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.Picture)
	if err != nil {
		h.logger.Error("failed to update profile", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	writeJSON(w, u)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
