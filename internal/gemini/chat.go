package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/chapibot/chapi/internal/pipeline"
)

// Generate answers the prompt with the chat model, feeding prior turns as
// alternating user/model contents.
func (c *Client) Generate(ctx context.Context, prompt string, history []pipeline.Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := "user"
		if turn.Role == pipeline.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	})

	config := &genai.GenerateContentConfig{}
	if c.cfg.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: c.cfg.SystemPrompt}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.ChatModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini chat: %v", pipeline.ErrGeneration, err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", fmt.Errorf("%w: gemini response contains no text", pipeline.ErrGeneration)
	}
	return reply, nil
}
