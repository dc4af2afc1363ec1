package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chapibot/chapi/internal/memory"
	"github.com/chapibot/chapi/internal/observability"
	"github.com/chapibot/chapi/internal/prompt"
	"github.com/chapibot/chapi/internal/session"
)

// Orchestrator runs the two request pipelines. Each pipeline is strictly
// sequential: every stage's output is the mandatory input of the next.
//
// The text and voice paths use separate Generator backends, chosen by
// wiring at startup, never by request data.
type Orchestrator struct {
	sessions     *session.Store
	history      memory.Store
	stt          Transcriber
	textGen      Generator
	voiceGen     Generator
	tts          Synthesizer
	metrics      *observability.Metrics
	historyDepth int
}

func NewOrchestrator(
	sessions *session.Store,
	history memory.Store,
	stt Transcriber,
	textGen Generator,
	voiceGen Generator,
	tts Synthesizer,
	metrics *observability.Metrics,
	historyDepth int,
) *Orchestrator {
	if historyDepth <= 0 {
		historyDepth = 10
	}
	return &Orchestrator{
		sessions:     sessions,
		history:      history,
		stt:          stt,
		textGen:      textGen,
		voiceGen:     voiceGen,
		tts:          tts,
		metrics:      metrics,
		historyDepth: historyDepth,
	}
}

// Text runs the debug pipeline: greeting policy around the text Generator,
// no audio stages.
func (o *Orchestrator) Text(ctx context.Context, req TextRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidInput)
	}

	reply, greeted, err := o.converse(ctx, o.textGen, req.SessionID, message)
	if err != nil {
		return "", err
	}

	o.commit(ctx, req.SessionID, message, reply, greeted)
	return reply, nil
}

// Voice runs the full pipeline: STT, greeting policy around the voice
// Generator, then TTS. A synthesis failure yields an error, never the
// unspoken text, and rolls the greeting claim back so a retry still greets.
func (o *Orchestrator) Voice(ctx context.Context, req VoiceRequest) ([]byte, error) {
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrInvalidInput)
	}

	start := time.Now()
	transcript, err := o.stt.Transcribe(ctx, req.Audio, req.Filename, req.MIMEType)
	o.metrics.ObserveStage("transcribe", time.Since(start))
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("transcribe").Inc()
		return nil, err
	}

	reply, greeted, err := o.converse(ctx, o.voiceGen, req.SessionID, transcript)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	audio, err := o.tts.Synthesize(ctx, reply)
	o.metrics.ObserveStage("synthesize", time.Since(start))
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("synthesize").Inc()
		if greeted {
			o.sessions.ReleaseGreeting(req.SessionID)
		}
		return nil, err
	}

	o.commit(ctx, req.SessionID, transcript, reply, greeted)
	return audio, nil
}

// converse applies the greeting policy around one Generate call. The claim
// is taken before the remote call so concurrent first requests serialize on
// the store, and released on failure so the greeting is never lost.
func (o *Orchestrator) converse(ctx context.Context, gen Generator, sessionID, userText string) (reply string, greeted bool, err error) {
	o.sessions.GetOrCreate(sessionID)

	history := o.recentTurns(ctx, sessionID)
	claimed := o.sessions.ClaimGreeting(sessionID)

	start := time.Now()
	raw, err := gen.Generate(ctx, userText, history)
	o.metrics.ObserveStage("generate", time.Since(start))
	if err == nil {
		reply = CleanReply(raw)
		if reply == "" {
			err = fmt.Errorf("%w: completion empty after sanitation", ErrGeneration)
		}
	}
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues("generate").Inc()
		if claimed {
			o.sessions.ReleaseGreeting(sessionID)
		}
		return "", false, err
	}

	if claimed {
		reply = prompt.PrefixIntro(reply)
	}
	return reply, claimed, nil
}

// commit records the finished exchange. History is an enrichment: a store
// failure is logged, not surfaced, so it cannot fail a delivered reply.
func (o *Orchestrator) commit(ctx context.Context, sessionID, userText, reply string, greeted bool) {
	if greeted {
		o.metrics.GreetingsSent.Inc()
	}
	o.metrics.KnownSessions.Set(float64(o.sessions.Count()))

	if err := o.history.SaveTurn(ctx, memory.TurnRecord{
		SessionID: sessionID,
		Role:      memory.RoleUser,
		Content:   userText,
	}); err != nil {
		log.Printf("history save (user turn) failed: %v", err)
		return
	}
	if err := o.history.SaveTurn(ctx, memory.TurnRecord{
		SessionID: sessionID,
		Role:      memory.RoleAssistant,
		Content:   reply,
	}); err != nil {
		log.Printf("history save (assistant turn) failed: %v", err)
	}
}

func (o *Orchestrator) recentTurns(ctx context.Context, sessionID string) []Turn {
	records, err := o.history.RecentTurns(ctx, sessionID, o.historyDepth)
	if err != nil {
		log.Printf("history load failed: %v", err)
		return nil
	}
	turns := make([]Turn, 0, len(records))
	for _, r := range records {
		turns = append(turns, Turn{Role: r.Role, Content: r.Content})
	}
	return turns
}
