package chat

import (
	"context"
	"fmt"

	"converse/internal/database"
	"converse/internal/models"
)

// Repository is the message store and history resolver. Every write is a
// single-row insert; no multi-row transactions are needed here.
type Repository struct {
	db *database.Database
}

func NewRepository(db *database.Database) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// History returns the conversation between requesterID and otherID ordered
// oldest first. When otherID names a bot, the conversation is every message
// carrying that bot reference with the requester as sender; both directions
// of a bot conversation are stored that way.
func (r *Repository) History(ctx context.Context, requesterID, otherID string) ([]models.Message, error) {
	var messages []models.Message

	query := r.db.WithContext(ctx).Model(&models.Message{})
	if isBot, err := r.isBot(ctx, otherID); err != nil {
		return nil, err
	} else if isBot {
		query = query.Where("ai_bot_id = ? AND sender_id = ?", otherID, requesterID)
	} else {
		query = query.Where(
			"(sender_id = ? AND receiver_id = ? AND ai_bot_id IS NULL) OR (sender_id = ? AND receiver_id = ? AND ai_bot_id IS NULL)",
			requesterID, otherID, otherID, requesterID,
		)
	}

	if err := query.Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return messages, nil
}

// RecentForBot returns at most limit of the newest messages for the
// (user, bot) pair, reordered oldest first for prompt building.
func (r *Repository) RecentForBot(ctx context.Context, userID, botID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("ai_bot_id = ? AND sender_id = ?", botID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *Repository) isBot(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AIBot{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to resolve counterpart: %w", err)
	}
	return count > 0, nil
}
