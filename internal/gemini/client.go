// Package gemini implements the pipeline capability interfaces on top of
// the google.golang.org/genai SDK: multimodal transcription, chat
// generation and preview text-to-speech.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/chapibot/chapi/internal/pipeline"
)

const (
	defaultChatModel = "gemini-2.5-flash"
	defaultSTTModel  = "gemini-2.5-flash"
	defaultTTSModel  = "gemini-2.5-flash-preview-tts"
	defaultSTTPrompt = "Transcribe el audio exactamente en español, sin comentarios adicionales."
)

// Interface compliance checks.
var (
	_ pipeline.Transcriber = (*Client)(nil)
	_ pipeline.Generator   = (*Client)(nil)
	_ pipeline.Synthesizer = (*Client)(nil)
)

// Config carries the provider settings injected at startup. Zero fields
// fall back to the service defaults.
type Config struct {
	APIKey       string
	ChatModel    string
	STTModel     string
	STTPrompt    string
	TTSModel     string
	TTSVoice     string
	SystemPrompt string
}

// Client holds one shared genai connection; credentials are read-only after
// construction.
type Client struct {
	client *genai.Client
	cfg    Config
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.STTModel == "" {
		cfg.STTModel = defaultSTTModel
	}
	if cfg.STTPrompt == "" {
		cfg.STTPrompt = defaultSTTPrompt
	}
	if cfg.TTSModel == "" {
		cfg.TTSModel = defaultTTSModel
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc, cfg: cfg}, nil
}
