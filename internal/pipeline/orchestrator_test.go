package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chapibot/chapi/internal/memory"
	"github.com/chapibot/chapi/internal/observability"
	"github.com/chapibot/chapi/internal/prompt"
	"github.com/chapibot/chapi/internal/session"
)

type fakeTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	history [][]Turn
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, history []Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.history = append(f.history, history)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "eco: " + prompt, nil
}

type fakeSynthesizer struct {
	err   error
	calls int
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("RIFF" + text), nil
}

func testMetrics(t *testing.T) *observability.Metrics {
	t.Helper()
	return observability.NewMetrics("test_pipeline_" + strings.ToLower(t.Name()) + time.Now().Format("150405000000000"))
}

func newTestOrchestrator(t *testing.T, stt Transcriber, gen Generator, tts Synthesizer) *Orchestrator {
	t.Helper()
	return NewOrchestrator(
		session.NewStore(),
		memory.NewInMemoryStore(),
		stt,
		gen,
		gen,
		tts,
		testMetrics(t),
		10,
	)
}

func TestTextGreetingDeliveredOncePerSession(t *testing.T) {
	gen := &fakeGenerator{reply: "me alegra conocerte"}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})
	ctx := context.Background()

	first, err := o.Text(ctx, TextRequest{Message: "hola", SessionID: "r1"})
	if err != nil {
		t.Fatalf("first Text() error = %v", err)
	}
	if !strings.HasPrefix(first, prompt.Intro) {
		t.Fatalf("first reply = %q, want intro prefix %q", first, prompt.Intro)
	}

	second, err := o.Text(ctx, TextRequest{Message: "sigo aquí", SessionID: "r1"})
	if err != nil {
		t.Fatalf("second Text() error = %v", err)
	}
	if prompt.HasIntro(second) {
		t.Fatalf("second reply repeated the introduction: %q", second)
	}

	// A different session id greets again.
	other, err := o.Text(ctx, TextRequest{Message: "hola", SessionID: "r2"})
	if err != nil {
		t.Fatalf("other-session Text() error = %v", err)
	}
	if !strings.HasPrefix(other, prompt.Intro) {
		t.Fatalf("other-session reply = %q, want intro prefix", other)
	}
}

func TestTextImplicitSharedSession(t *testing.T) {
	gen := &fakeGenerator{reply: "claro que sí"}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})
	ctx := context.Background()

	first, err := o.Text(ctx, TextRequest{Message: "hola"})
	if err != nil {
		t.Fatalf("first Text() error = %v", err)
	}
	if !prompt.HasIntro(first) {
		t.Fatalf("first implicit-session reply missing intro: %q", first)
	}

	second, err := o.Text(ctx, TextRequest{Message: "hola otra vez"})
	if err != nil {
		t.Fatalf("second Text() error = %v", err)
	}
	if prompt.HasIntro(second) {
		t.Fatalf("implicit session repeated the introduction: %q", second)
	}
}

func TestTextEmptyMessageRejected(t *testing.T) {
	gen := &fakeGenerator{}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})

	_, err := o.Text(context.Background(), TextRequest{Message: "   ", SessionID: "r1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Text(empty) error = %v, want ErrInvalidInput", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times for invalid input, want 0", gen.calls)
	}
}

func TestFailedGenerationLeavesGreetingUnclaimed(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: upstream 500", ErrGeneration)}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})
	ctx := context.Background()

	if _, err := o.Text(ctx, TextRequest{Message: "hola", SessionID: "r1"}); !errors.Is(err, ErrGeneration) {
		t.Fatalf("Text() error = %v, want ErrGeneration", err)
	}

	// Retry after the provider recovers must still deliver the greeting.
	gen.err = nil
	gen.reply = "ya estoy de vuelta"
	reply, err := o.Text(ctx, TextRequest{Message: "hola", SessionID: "r1"})
	if err != nil {
		t.Fatalf("retry Text() error = %v", err)
	}
	if !prompt.HasIntro(reply) {
		t.Fatalf("retry reply missing intro after failed first attempt: %q", reply)
	}
}

func TestConcurrentFirstRequestsGreetExactlyOnce(t *testing.T) {
	gen := &fakeGenerator{reply: "hola hola"}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})

	const workers = 16
	replies := make(chan string, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			reply, err := o.Text(context.Background(), TextRequest{Message: "hola", SessionID: "race"})
			if err != nil {
				t.Errorf("Text() error = %v", err)
				return
			}
			replies <- reply
		}()
	}
	close(start)
	wg.Wait()
	close(replies)

	greeted := 0
	for reply := range replies {
		if prompt.HasIntro(reply) {
			greeted++
		}
	}
	if greeted != 1 {
		t.Fatalf("greeted replies = %d, want exactly 1", greeted)
	}
}

func TestVoicePipelineSequence(t *testing.T) {
	stt := &fakeTranscriber{transcript: "cuéntame un cuento"}
	gen := &fakeGenerator{reply: "había una vez un robot"}
	tts := &fakeSynthesizer{}
	o := newTestOrchestrator(t, stt, gen, tts)

	audio, err := o.Voice(context.Background(), VoiceRequest{
		Audio:     []byte{0x01, 0x02},
		Filename:  "utterance.wav",
		MIMEType:  "audio/wav",
		SessionID: "r1",
	})
	if err != nil {
		t.Fatalf("Voice() error = %v", err)
	}
	if len(audio) == 0 {
		t.Fatalf("Voice() returned empty audio")
	}
	if stt.calls != 1 || gen.calls != 1 || tts.calls != 1 {
		t.Fatalf("stage calls = stt:%d gen:%d tts:%d, want 1 each", stt.calls, gen.calls, tts.calls)
	}
	// The greeting rides inside the synthesized text.
	if !prompt.HasIntro(string(audio)) {
		t.Fatalf("first voice reply missing intro in synthesized text: %q", audio)
	}
}

func TestVoiceEmptyAudioRejectedBeforeProviders(t *testing.T) {
	stt := &fakeTranscriber{}
	gen := &fakeGenerator{}
	tts := &fakeSynthesizer{}
	o := newTestOrchestrator(t, stt, gen, tts)

	_, err := o.Voice(context.Background(), VoiceRequest{SessionID: "r1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Voice(empty) error = %v, want ErrInvalidInput", err)
	}
	if stt.calls != 0 || gen.calls != 0 || tts.calls != 0 {
		t.Fatalf("provider calls = stt:%d gen:%d tts:%d, want none", stt.calls, gen.calls, tts.calls)
	}
}

func TestVoiceSynthesisFailureReturnsNoPartialResult(t *testing.T) {
	stt := &fakeTranscriber{transcript: "hola"}
	gen := &fakeGenerator{reply: "una respuesta"}
	tts := &fakeSynthesizer{err: fmt.Errorf("%w: upstream refused", ErrSynthesis)}
	o := newTestOrchestrator(t, stt, gen, tts)
	ctx := context.Background()

	audio, err := o.Voice(ctx, VoiceRequest{Audio: []byte{0x01}, SessionID: "r1"})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("Voice() error = %v, want ErrSynthesis", err)
	}
	if audio != nil {
		t.Fatalf("Voice() returned partial result %q alongside error", audio)
	}

	// The undelivered greeting must come back on the next successful turn.
	tts.err = nil
	out, err := o.Voice(ctx, VoiceRequest{Audio: []byte{0x01}, SessionID: "r1"})
	if err != nil {
		t.Fatalf("retry Voice() error = %v", err)
	}
	if !prompt.HasIntro(string(out)) {
		t.Fatalf("retry voice reply missing intro: %q", out)
	}
}

func TestHistoryFlowsIntoGenerator(t *testing.T) {
	gen := &fakeGenerator{reply: "segunda respuesta"}
	o := newTestOrchestrator(t, &fakeTranscriber{}, gen, &fakeSynthesizer{})
	ctx := context.Background()

	if _, err := o.Text(ctx, TextRequest{Message: "primero", SessionID: "r1"}); err != nil {
		t.Fatalf("first Text() error = %v", err)
	}
	if _, err := o.Text(ctx, TextRequest{Message: "segundo", SessionID: "r1"}); err != nil {
		t.Fatalf("second Text() error = %v", err)
	}

	if len(gen.history) != 2 {
		t.Fatalf("generator invocations = %d, want 2", len(gen.history))
	}
	if len(gen.history[0]) != 0 {
		t.Fatalf("first call history = %+v, want empty", gen.history[0])
	}
	second := gen.history[1]
	if len(second) != 2 {
		t.Fatalf("second call history len = %d, want 2 turns", len(second))
	}
	if second[0].Role != memory.RoleUser || second[0].Content != "primero" {
		t.Fatalf("history[0] = %+v, want prior user turn", second[0])
	}
	if second[1].Role != memory.RoleAssistant {
		t.Fatalf("history[1] = %+v, want prior assistant turn", second[1])
	}
}

func TestMockProviderSynthesizeRejectsEmptyText(t *testing.T) {
	p := NewMockProvider()
	if _, err := p.Synthesize(context.Background(), "   "); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("Synthesize(empty) error = %v, want ErrSynthesis", err)
	}
	out, err := p.Synthesize(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(out) == 0 || string(out[0:4]) != "RIFF" {
		t.Fatalf("mock synthesis must produce a WAV clip, got %d bytes", len(out))
	}
}
