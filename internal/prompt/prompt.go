// Package prompt holds the immutable text the orchestrator injects into
// conversations: the persona system prompt and the one-time introduction.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

// Intro is the fixed introductory utterance delivered once per session.
const Intro = "Hola, soy Chapi, tu compañero de apoyo emocional."

// introProbe matches replies where the model already introduced itself.
const introProbe = "hola, soy chapi"

// SystemPrompt is the persona template loaded once at startup and shared
// read-only by every request. Updating the file requires a restart.
type SystemPrompt struct {
	text string
}

// LoadSystemPrompt reads the prompt file. A missing file is not an error:
// the service runs without a persona prompt, matching local setups where
// prompts/ is absent. An unreadable existing file is an error.
func LoadSystemPrompt(path string) (SystemPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SystemPrompt{}, nil
		}
		return SystemPrompt{}, fmt.Errorf("read system prompt %s: %w", path, err)
	}
	return SystemPrompt{text: strings.TrimSpace(string(data))}, nil
}

// Text returns the prompt text, empty when no prompt is configured.
func (p SystemPrompt) Text() string { return p.text }

// IsZero reports whether a prompt is configured.
func (p SystemPrompt) IsZero() bool { return p.text == "" }

// PrefixIntro prepends the introduction to a reply unless the model already
// opened with it.
func PrefixIntro(reply string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(reply)), introProbe) {
		return reply
	}
	return strings.TrimSpace(Intro + " " + reply)
}

// HasIntro reports whether a reply carries the introduction.
func HasIntro(reply string) bool {
	return strings.Contains(strings.ToLower(reply), introProbe)
}
