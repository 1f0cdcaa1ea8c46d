//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"converse/config"
	"converse/internal/ai"
	"converse/internal/api"
	"converse/internal/auth"
	"converse/internal/chat"
	"converse/internal/database"
	"converse/internal/email"
	"converse/internal/metrics"
	"converse/internal/realtime"
	"converse/internal/user"
)

func InitializeServer(
	cfg *config.Config,
	db *database.Database,
	revoker auth.TokenRevoker,
	mailer *email.Sender,
	logger *zap.Logger,
) (*api.Server, error) {
	wire.Build(
		metrics.Set,
		chat.Set,
		wire.Bind(new(realtime.MessageStore), new(*chat.Repository)),
		realtime.Set,
		wire.Bind(new(realtime.TokenVerifier), new(*auth.Manager)),
		wire.Bind(new(ai.EventRouter), new(*realtime.Hub)),
		user.Set,
		auth.Set,
		ai.Set,
		api.Set,
	)
	return nil, nil
}
