package pipeline

import (
	"regexp"
	"strings"
)

var (
	newlineRunPattern = regexp.MustCompile(`\n+`)
	spaceRunPattern   = regexp.MustCompile(`\s{2,}`)
	boldPattern       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	underscorePattern = regexp.MustCompile(`__(.*?)__`)
	// Pictographs, emoticons, transport, supplemental symbols, dingbats.
	// Kept narrow on purpose so Spanish text and CJK pass through intact.
	emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1F5FF}\x{1F600}-\x{1F64F}\x{1F680}-\x{1F6FF}\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}]`)
)

// CleanReply flattens a model completion into a single spoken line: TTS
// input has no use for markdown emphasis, emojis or line structure.
func CleanReply(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = newlineRunPattern.ReplaceAllString(text, " ")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = underscorePattern.ReplaceAllString(text, "$1")
	text = emojiPattern.ReplaceAllString(text, "")
	text = spaceRunPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
