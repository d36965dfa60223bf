package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/straye-as/pipeline-api/internal/config"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned when the model produced no choices
var ErrEmptyResponse = errors.New("no response from model")

// Completer turns a system and user prompt into a model answer.
// Answers are requested as a JSON object.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// OpenAIClient implements Completer with the chat completions API
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// NewOpenAIClient returns nil when drafting is disabled or no key is configured
func NewOpenAIClient(cfg *config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Info("OpenAI drafting disabled, follow-up emails use the template")
		return nil
	}
	return NewOpenAIClientWithConfig(openai.DefaultConfig(cfg.APIKey), cfg, logger)
}

// NewOpenAIClientWithConfig allows overriding the API base URL
func NewOpenAIClientWithConfig(clientCfg openai.ClientConfig, cfg *config.OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 400
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		timeout:   cfg.TimeoutDuration(),
		logger:    logger,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.4,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("OpenAI completion failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("openai chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("OpenAI completion finished",
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
