package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/chapibot/chapi/internal/config"
	"github.com/chapibot/chapi/internal/gemini"
	"github.com/chapibot/chapi/internal/httpapi"
	"github.com/chapibot/chapi/internal/memory"
	"github.com/chapibot/chapi/internal/observability"
	"github.com/chapibot/chapi/internal/openai"
	"github.com/chapibot/chapi/internal/pipeline"
	"github.com/chapibot/chapi/internal/prompt"
	"github.com/chapibot/chapi/internal/session"
)

func main() {
	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	if err := config.EnsureGoogleCredentialsFile(".runtime"); err != nil {
		log.Fatalf("google credentials setup failed: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	systemPrompt, err := prompt.LoadSystemPrompt(cfg.OpenAISystemPromptFile)
	if err != nil {
		log.Fatalf("system prompt load failed: %v", err)
	}
	if systemPrompt.IsZero() {
		log.Printf("no system prompt at %s, running without persona prompt", cfg.OpenAISystemPromptFile)
	}

	ctx := context.Background()
	historyStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history store init failed: %v", err)
	}
	defer historyStore.Close()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		log.Printf("history store: postgres")
	} else {
		log.Printf("history store: in-memory")
	}

	// One shared Gemini client serves STT, TTS and the voice generator.
	var geminiClient *gemini.Client
	loadGemini := func() (*gemini.Client, error) {
		if geminiClient != nil {
			return geminiClient, nil
		}
		c, err := gemini.New(ctx, gemini.Config{
			APIKey:       cfg.GeminiAPIKey,
			ChatModel:    cfg.GeminiChatModel,
			STTModel:     cfg.GeminiSTTModel,
			STTPrompt:    cfg.GeminiSTTPrompt,
			TTSModel:     cfg.GeminiTTSModel,
			TTSVoice:     cfg.GeminiTTSVoice,
			SystemPrompt: systemPrompt.Text(),
		})
		if err != nil {
			return nil, err
		}
		geminiClient = c
		return c, nil
	}

	mock := pipeline.NewMockProvider()

	var (
		stt      pipeline.Transcriber = mock
		tts      pipeline.Synthesizer = mock
		voiceGen pipeline.Generator   = mock
	)
	voiceMode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))
	switch voiceMode {
	case "", "auto":
		if cfg.GeminiAPIKey != "" {
			c, err := loadGemini()
			if err != nil {
				log.Fatalf("gemini init failed: %v", err)
			}
			stt, tts, voiceGen = c, c, c
			log.Printf("voice provider: gemini")
		} else {
			log.Printf("voice provider: mock (GEMINI_API_KEY not set)")
		}
	case "gemini":
		c, err := loadGemini()
		if err != nil {
			log.Fatalf("VOICE_PROVIDER=gemini: %v", err)
		}
		stt, tts, voiceGen = c, c, c
		log.Printf("voice provider: gemini")
	case "mock":
		log.Printf("voice provider: mock")
	default:
		log.Fatalf("invalid VOICE_PROVIDER: %q (expected auto|gemini|mock)", cfg.VoiceProvider)
	}

	var textGen pipeline.Generator = mock
	textMode := strings.ToLower(strings.TrimSpace(cfg.TextProvider))
	switch textMode {
	case "", "auto":
		switch {
		case cfg.OpenAIAPIKey != "":
			g, err := openai.New(openai.Config{
				APIKey:       cfg.OpenAIAPIKey,
				Model:        cfg.OpenAIModel,
				SystemPrompt: systemPrompt,
			})
			if err != nil {
				log.Fatalf("openai init failed: %v", err)
			}
			textGen = g
			log.Printf("text provider: openai")
		case cfg.GeminiAPIKey != "":
			c, err := loadGemini()
			if err != nil {
				log.Fatalf("gemini init failed: %v", err)
			}
			textGen = c
			log.Printf("text provider: gemini")
		default:
			log.Printf("text provider: mock (no provider keys set)")
		}
	case "openai":
		g, err := openai.New(openai.Config{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			SystemPrompt: systemPrompt,
		})
		if err != nil {
			log.Fatalf("TEXT_PROVIDER=openai: %v", err)
		}
		textGen = g
		log.Printf("text provider: openai")
	case "gemini":
		c, err := loadGemini()
		if err != nil {
			log.Fatalf("TEXT_PROVIDER=gemini: %v", err)
		}
		textGen = c
		log.Printf("text provider: gemini")
	case "mock":
		log.Printf("text provider: mock")
	default:
		log.Fatalf("invalid TEXT_PROVIDER: %q (expected auto|openai|gemini|mock)", cfg.TextProvider)
	}

	sessions := session.NewStore()
	orchestrator := pipeline.NewOrchestrator(
		sessions,
		historyStore,
		stt,
		textGen,
		voiceGen,
		tts,
		metrics,
		cfg.HistoryDepth,
	)

	api := httpapi.New(cfg, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
