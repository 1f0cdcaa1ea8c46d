package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"converse/infrastructure"
	"converse/internal/database"
	"converse/internal/models"
)

type BotRepository struct {
	db *database.Database
}

func NewBotRepository(db *database.Database) *BotRepository {
	return &BotRepository{db: db}
}

func (r *BotRepository) Create(ctx context.Context, creatorID, name, description string) (*models.AIBot, error) {
	bot := &models.AIBot{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		// Derived once; the bot keeps this directive for life.
		SystemInstruction: fmt.Sprintf("You are an AI assistant. you should have the following personality: %s", description),
		CreatorID:         creatorID,
	}
	if err := r.db.WithContext(ctx).Create(bot).Error; err != nil {
		return nil, fmt.Errorf("failed to create ai bot: %w", err)
	}
	return bot, nil
}

func (r *BotRepository) Get(ctx context.Context, id string) (*models.AIBot, error) {
	var bot models.AIBot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, infrastructure.ErrBotNotFound
		}
		return nil, fmt.Errorf("failed to load ai bot: %w", err)
	}
	return &bot, nil
}

func (r *BotRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.AIBot, error) {
	var bots []models.AIBot
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Order("created_at ASC").Find(&bots).Error; err != nil {
		return nil, fmt.Errorf("failed to list ai bots: %w", err)
	}
	return bots, nil
}
