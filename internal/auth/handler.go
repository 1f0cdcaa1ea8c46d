package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"converse/infrastructure"
	"converse/internal/models"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type credentialsResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Picture  string `json:"picture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, pair, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name, req.Picture)
	if err != nil {
		h.writeError(w, err, "signup failed")
		return
	}

	writeJSON(w, credentialsResponse{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err, "login failed")
		return
	}

	writeJSON(w, credentialsResponse{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, err, "refresh failed")
		return
	}
	writeJSON(w, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "refresh_token is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.writeError(w, err, "logout failed")
		return
	}
	writeJSON(w, map[string]string{"message": "successfully logged out"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, infrastructure.ErrInvalidInput):
		http.Error(w, "email and password are required", http.StatusBadRequest)
	case errors.Is(err, infrastructure.ErrWeakPassword):
		http.Error(w, "password is too weak", http.StatusBadRequest)
	case errors.Is(err, infrastructure.ErrUserAlreadyExists):
		http.Error(w, "user already exists", http.StatusBadRequest)
	case errors.Is(err, infrastructure.ErrUnauthorized),
		errors.Is(err, infrastructure.ErrUserNotFound):
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, infrastructure.ErrInvalidToken),
		errors.Is(err, infrastructure.ErrTokenExpired),
		errors.Is(err, infrastructure.ErrTokenRevoked):
		http.Error(w, "invalid token", http.StatusUnauthorized)
	default:
		h.logger.Error(logMsg, zap.Error(err))
		http.Error(w, logMsg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
