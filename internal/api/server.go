package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"converse/config"
	"converse/internal/ai"
	"converse/internal/auth"
	"converse/internal/chat"
	"converse/internal/realtime"
	"converse/internal/user"
)

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	tokens *auth.Manager,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	chatHandler *chat.Handler,
	aiHandler *ai.Handler,
	hub *realtime.Hub,
) *Server {
	r := mux.NewRouter()
	r.Use(Logging(logger))
	r.Use(RateLimit(100))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/ws", hub.ServeWS)

	r.HandleFunc("/api/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(auth.Middleware(tokens))
	protected.HandleFunc("/users", userHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", userHandler.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/users/me", userHandler.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/messages/{otherId}", chatHandler.GetHistory).Methods(http.MethodGet)
	protected.HandleFunc("/ai/bots", aiHandler.CreateBot).Methods(http.MethodPost)
	protected.HandleFunc("/ai/bots", aiHandler.ListBots).Methods(http.MethodGet)
	protected.HandleFunc("/ai/chat", aiHandler.Chat).Methods(http.MethodPost)

	return &Server{
		httpServer: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: r,
		},
		logger: logger,
	}
}

func (s *Server) Run() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
