package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"converse/config"
	"converse/internal/models"
)

// Generator turns a persona directive plus a conversation window into a
// reply. The external API is unreliable and slow; callers bound every call
// with a context timeout and treat any error the same way.
type Generator interface {
	Generate(ctx context.Context, systemInstruction string, history []models.Message) (string, error)
}

// LLMGenerator calls an OpenAI-compatible endpoint through langchaingo, so
// the same code serves OpenAI, Gemini's compatibility layer or a local model.
type LLMGenerator struct {
	llm llms.Model
}

func NewLLMGenerator(cfg *config.Config) (*LLMGenerator, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.LLMAPIKey),
		openai.WithBaseURL(cfg.LLMBaseURL),
		openai.WithModel(cfg.LLMModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	return &LLMGenerator{llm: llm}, nil
}

func (g *LLMGenerator) Generate(ctx context.Context, systemInstruction string, history []models.Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(history)+1)
	content = append(content, llms.TextParts(schema.ChatMessageTypeSystem, systemInstruction))
	for _, msg := range history {
		role := schema.ChatMessageTypeHuman
		if msg.IsFromAI {
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}

	resp, err := g.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("empty response from model")
	}
	return resp.Choices[0].Content, nil
}
