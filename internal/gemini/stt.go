package gemini

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"google.golang.org/genai"

	"github.com/chapibot/chapi/internal/pipeline"
)

// Transcribe sends the audio inline to the multimodal chat model together
// with a transcription instruction. WAV, MP3 and M4A uploads all work; the
// MIME hint lets the model pick codec-aware decoding.
func (c *Client) Transcribe(ctx context.Context, audioBytes []byte, filename, mimeType string) (string, error) {
	if len(audioBytes) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", pipeline.ErrInvalidInput)
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: c.cfg.STTPrompt},
			{InlineData: &genai.Blob{
				MIMEType: resolveMIMEType(mimeType, filename),
				Data:     audioBytes,
			}},
		},
	}}

	temperature := float32(0)
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.STTModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT"},
		Temperature:        &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini stt: %v", pipeline.ErrTranscription, err)
	}

	transcript := strings.TrimSpace(resp.Text())
	if transcript == "" {
		return "", fmt.Errorf("%w: gemini returned no transcript text", pipeline.ErrTranscription)
	}
	return transcript, nil
}

// resolveMIMEType prefers the caller's explicit content type, then the
// filename extension, then the recommended wav default.
func resolveMIMEType(explicit, filename string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if ext := filepath.Ext(filename); ext != "" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			return guessed
		}
	}
	return "audio/wav"
}
