package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"converse/config"
	"converse/infrastructure"
	"converse/internal/chat"
	"converse/internal/metrics"
	"converse/internal/models"
	"converse/internal/realtime"
)

// historyWindow is how many of the newest turns feed the prompt.
const historyWindow = 20

// persistTimeout bounds the reply write separately from generation, so a
// reply produced just under the generation deadline is not lost at the
// persist step.
const persistTimeout = 5 * time.Second

// EventRouter is the delivery side effect the async pipeline is observed
// through; nothing ever awaits a reply directly.
type EventRouter interface {
	Deliver(targetID, event string, payload interface{})
}

type Service struct {
	bots      *BotRepository
	messages  *chat.Repository
	generator Generator
	router    EventRouter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	timeout   time.Duration
}

func NewService(
	cfg *config.Config,
	bots *BotRepository,
	messages *chat.Repository,
	generator Generator,
	router EventRouter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		bots:      bots,
		messages:  messages,
		generator: generator,
		router:    router,
		metrics:   m,
		logger:    logger,
		timeout:   cfg.LLMTimeout,
	}
}

// Chat is phase 1: validate, persist the human's message and return it
// immediately. The reply is produced by a detached goroutine and only ever
// surfaces as a receive_message event; if generation fails the user simply
// never hears back for that turn.
func (s *Service) Chat(ctx context.Context, userID, botID, message string) (*models.Message, error) {
	if botID == "" || message == "" {
		return nil, infrastructure.ErrInvalidInput
	}

	bot, err := s.bots.Get(ctx, botID)
	if err != nil {
		return nil, err
	}

	userMessage := &models.Message{
		Content:    message,
		SenderID:   userID,
		ReceiverID: userID, // bot conversations are stored against the human on both ends
		AIBotID:    &bot.ID,
		IsFromAI:   false,
	}
	if err := s.messages.Save(ctx, userMessage); err != nil {
		return nil, err
	}
	s.metrics.MessagesPersisted.Inc()

	s.router.Deliver(userID, realtime.EventUserTyping, realtime.UserRef{UserID: bot.ID})

	go s.respond(userID, bot)

	return userMessage, nil
}

// respond is phase 2. It runs detached from the originating request: several
// of these may be in flight for the same pair, and no ordering is promised
// across them.
func (s *Service) respond(userID string, bot *models.AIBot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reply, err := s.generate(ctx, userID, bot)
	if err != nil {
		// Absorbed: clear the typing indicator and move on. The client learns
		// about the failure only through the absence of a reply.
		s.metrics.AIReplies.WithLabelValues("error").Inc()
		s.logger.Warn("ai reply failed",
			zap.String("user_id", userID), zap.String("bot_id", bot.ID), zap.Error(err))
		s.router.Deliver(userID, realtime.EventUserStoppedTyping, realtime.UserRef{UserID: bot.ID})
		return
	}

	s.router.Deliver(userID, realtime.EventUserStoppedTyping, realtime.UserRef{UserID: bot.ID})

	aiMessage := &models.Message{
		Content:    reply,
		SenderID:   userID,
		ReceiverID: userID,
		AIBotID:    &bot.ID,
		IsFromAI:   true,
	}
	saveCtx, cancelSave := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelSave()
	if err := s.messages.Save(saveCtx, aiMessage); err != nil {
		s.metrics.AIReplies.WithLabelValues("error").Inc()
		s.logger.Error("failed to persist ai reply",
			zap.String("user_id", userID), zap.String("bot_id", bot.ID), zap.Error(err))
		return
	}
	s.metrics.MessagesPersisted.Inc()
	s.metrics.AIReplies.WithLabelValues("ok").Inc()

	// If the user disconnected mid-generation this is a silent drop, which is
	// fine: the reply is already in their history.
	s.router.Deliver(userID, realtime.EventReceiveMessage, aiMessage)
}

func (s *Service) generate(ctx context.Context, userID string, bot *models.AIBot) (string, error) {
	history, err := s.messages.RecentForBot(ctx, userID, bot.ID, historyWindow)
	if err != nil {
		return "", err
	}
	return s.generator.Generate(ctx, bot.SystemInstruction, history)
}
