// Package pipeline wires audio in to audio out: transcription, text
// generation with per-session greeting policy, and speech synthesis.
package pipeline

import (
	"context"
	"errors"
)

// Error taxonomy surfaced to the HTTP layer. Adapters wrap their upstream
// failures with the matching sentinel so handlers can map status codes with
// errors.Is without knowing provider details.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTranscription = errors.New("transcription failed")
	ErrGeneration    = errors.New("generation failed")
	ErrSynthesis     = errors.New("synthesis failed")
)

// Conversation roles carried on history turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior utterance in a conversation, oldest first.
type Turn struct {
	Role    string
	Content string
}

// Transcriber converts raw audio into a text transcript. Filename and MIME
// type are hints the provider may use for codec selection.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (string, error)
}

// Generator produces a reply for a prompt given optional prior turns.
// Implementations return the primary completion trimmed of surrounding
// whitespace and fail on empty output.
type Generator interface {
	Generate(ctx context.Context, prompt string, history []Turn) (string, error)
}

// Synthesizer converts non-empty text into playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VoiceRequest is one inbound robot utterance. It exists only for the
// duration of a single pipeline invocation.
type VoiceRequest struct {
	Audio     []byte
	Filename  string
	MIMEType  string
	SessionID string
}

// TextRequest is the debug path: a message string, no audio round-trip.
type TextRequest struct {
	Message   string
	SessionID string
}
