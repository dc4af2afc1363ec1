package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/chapibot/chapi/internal/audio"
	"github.com/chapibot/chapi/internal/pipeline"
)

// Preview TTS models emit raw PCM16LE at this rate unless the part MIME
// type says otherwise.
const defaultTTSSampleRate = 24000

// Synthesize speaks the text with the preview TTS model and wraps the
// returned PCM in a WAV container.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	spoken := strings.TrimSpace(text)
	if spoken == "" {
		return nil, fmt.Errorf("%w: %w: empty text", pipeline.ErrSynthesis, pipeline.ErrInvalidInput)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
	}
	if c.cfg.TTSVoice != "" {
		config.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.cfg.TTSVoice},
			},
		}
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: spoken}},
	}}
	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.TTSModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini tts: %v", pipeline.ErrSynthesis, err)
	}

	pcm, mimeType := extractInlineAudio(resp)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: gemini response contains no audio data", pipeline.ErrSynthesis)
	}

	wav, err := audio.EncodeWAVPCM16LE(pcm, sampleRateFromMIME(mimeType, defaultTTSSampleRate))
	if err != nil {
		return nil, fmt.Errorf("%w: wrap pcm as wav: %v", pipeline.ErrSynthesis, err)
	}
	return wav, nil
}

func extractInlineAudio(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType
			}
		}
	}
	return nil, ""
}

// sampleRateFromMIME parses a rate parameter out of MIME types like
// "audio/L16;codec=pcm;rate=24000".
func sampleRateFromMIME(mimeType string, fallback int) int {
	for _, token := range strings.Split(mimeType, ";") {
		token = strings.TrimSpace(token)
		if !strings.HasPrefix(token, "rate=") {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimPrefix(token, "rate="))
		if err != nil || rate <= 0 {
			return fallback
		}
		return rate
	}
	return fallback
}
