// Package openai implements the text Generator on top of the OpenAI chat
// completions API. It backs the debug /api/text endpoint.
package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/chapibot/chapi/internal/pipeline"
	"github.com/chapibot/chapi/internal/prompt"
)

const defaultModel = "gpt-4o-mini"

var _ pipeline.Generator = (*Generator)(nil)

// Config carries the provider settings injected at startup.
type Config struct {
	APIKey       string
	Model        string
	SystemPrompt prompt.SystemPrompt
	// BaseURL overrides the API endpoint, used by tests and proxies.
	BaseURL string
}

// Generator produces replies via OpenAI chat completions.
type Generator struct {
	client       *goopenai.Client
	model        string
	systemPrompt prompt.SystemPrompt
}

func New(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:       goopenai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// Generate sends the optional system prompt, prior turns and the user
// prompt as one chat completion request and returns the primary choice.
func (g *Generator) Generate(ctx context.Context, userPrompt string, history []pipeline.Turn) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(history)+2)
	if !g.systemPrompt.IsZero() {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: g.systemPrompt.Text(),
		})
	}
	for _, turn := range history {
		role := goopenai.ChatMessageRoleUser
		if turn.Role == pipeline.RoleAssistant {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %v", pipeline.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response contains no choices", pipeline.ErrGeneration)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: openai response contains no text", pipeline.ErrGeneration)
	}
	return reply, nil
}
