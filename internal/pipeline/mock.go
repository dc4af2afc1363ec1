package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/chapibot/chapi/internal/audio"
)

// MockProvider is a local fallback used when no provider keys are
// configured. Transcripts and replies are canned; synthesis produces a
// short silent WAV clip so device playback paths still exercise end to end.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Transcribe(_ context.Context, audioBytes []byte, _, _ string) (string, error) {
	if len(audioBytes) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrInvalidInput)
	}
	return "entrada de voz simulada", nil
}

func (p *MockProvider) Generate(_ context.Context, prompt string, _ []Turn) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrGeneration)
	}
	return "Respuesta simulada: " + prompt, nil
}

func (p *MockProvider) Synthesize(_ context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errEmptySynthesisText()
	}
	// 100ms of silence at 16kHz mono PCM16.
	return audio.EncodeWAVPCM16LE(make([]byte, 3200), 16000)
}

func errEmptySynthesisText() error {
	return fmt.Errorf("%w: %w: empty text", ErrSynthesis, ErrInvalidInput)
}
