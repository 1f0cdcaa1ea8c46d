package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"converse/config"
	"converse/internal/auth"
	"converse/internal/cache"
	"converse/internal/database"
	"converse/internal/email"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	var revoker auth.TokenRevoker = auth.NoopRevoker{}
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		revoker = redisCache
	}

	var mailer *email.Sender
	if cfg.SMTPHost != "" {
		mailer = email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	server, err := InitializeServer(cfg, db, revoker, mailer, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
