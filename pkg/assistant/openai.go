package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/quka-ai/daybook/pkg/types"
)

const (
	NAME_OPENAI = "openai"

	DEFAULT_MAX_TOKENS = 150
)

type OpenAIDriver struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIDriver creates a chat completion driver, proxy replaces the api base url when set.
func NewOpenAIDriver(token, proxy, model string) *OpenAIDriver {
	cfg := openai.DefaultConfig(token)
	if proxy != "" {
		cfg.BaseURL = proxy
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIDriver{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: DEFAULT_MAX_TOKENS,
	}
}

func (s *OpenAIDriver) Complete(ctx context.Context, messages []types.MessageContext) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: lo.Map(messages, func(item types.MessageContext, _ int) openai.ChatCompletionMessage {
			return openai.ChatCompletionMessage{
				Role:    item.Role.String(),
				Content: item.Content,
			}
		}),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Completion error: empty choices")
	}

	slog.Debug("Complete", slog.String("driver", NAME_OPENAI), slog.String("model", s.model), slog.Int("total_tokens", resp.Usage.TotalTokens))
	return resp.Choices[0].Message.Content, nil
}
