package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/davigres/alma/internal/audio"
	"github.com/davigres/alma/internal/brain"
	"github.com/davigres/alma/internal/config"
	"github.com/davigres/alma/internal/httpapi"
	"github.com/davigres/alma/internal/mood"
	"github.com/davigres/alma/internal/observability"
	"github.com/davigres/alma/internal/pipeline"
	"github.com/davigres/alma/internal/session"
	"github.com/davigres/alma/internal/store"
	"github.com/davigres/alma/internal/summarizer"
	"github.com/davigres/alma/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	turnStore, err := store.NewStore(ctx, cfg.DatabaseURL, cfg.DataDir)
	if err != nil {
		log.Fatalf("turn store init failed: %v", err)
	}
	defer turnStore.Close()

	workspace, err := audio.NewWorkspace(filepath.Join(cfg.DataDir, "audio"))
	if err != nil {
		log.Fatalf("audio workspace init failed: %v", err)
	}

	missing := cfg.MissingCredentials()
	useMocks := cfg.ForceMock
	if len(missing) > 0 {
		log.Printf("missing credentials %v: replies will explain the configuration gap", missing)
	}

	var (
		generator   brain.Generator
		transcriber voice.Transcriber
		synthesizer voice.Synthesizer
		visemes     voice.VisemeExtractor
	)
	if useMocks {
		log.Printf("providers: mock (ALMA_FORCE_MOCK set)")
		generator = brain.NewMockGenerator()
		transcriber = voice.NewMockTranscriber()
		synthesizer = voice.NewMockSynthesizer(workspace)
		visemes = voice.NewMockVisemeExtractor()
	} else {
		generator = brain.NewOpenAIClient(brain.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ChatModel,
		})
		transcriber = voice.NewWhisperClient(voice.WhisperConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.TranscribeModel,
		})
		synthesizer = voice.NewElevenLabsSynthesizer(voice.ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			ModelID: cfg.ElevenLabsTTSModel,
		}, workspace)
		visemes = voice.NewRhubarbExtractor(voice.RhubarbConfig{
			RhubarbPath: cfg.RhubarbCLI,
			FFmpegPath:  cfg.FFmpegCLI,
		})
	}

	var classifier mood.Classifier
	if cfg.ClassifierBaseURL == "" || useMocks {
		// Classification is optional; without a service every turn degrades
		// to the neutral/default labels.
		classifier = mood.NewMockClassifier()
		log.Printf("classifier: mock (CLASSIFIER_BASE_URL not set)")
	} else {
		classifier = mood.NewHTTPClassifier(cfg.ClassifierBaseURL)
	}

	guardian := session.NewGuardian(cfg.SessionInactivityTimeout)
	guardian.SetWipeHook(func(reason string) {
		if err := turnStore.Wipe(context.Background()); err != nil {
			log.Printf("session wipe (%s): store wipe failed: %v", reason, err)
		}
		if err := workspace.Clear(); err != nil {
			log.Printf("session wipe (%s): workspace clear failed: %v", reason, err)
		}
		metrics.IncSessionEvent("wiped_" + reason)
		metrics.SetExpired(reason == "inactivity")
		log.Printf("session wiped: %s", reason)
	})

	engine := pipeline.NewEngine(pipeline.Options{
		Store:              turnStore,
		Guardian:           guardian,
		Generator:          generator,
		Classifier:         classifier,
		Transcriber:        transcriber,
		Synthesizer:        synthesizer,
		Visemes:            visemes,
		Workspace:          workspace,
		Summarizer:         summarizer.New(turnStore, generator, cfg.SummaryThresholdChars),
		Metrics:            metrics,
		VoiceID:            cfg.ElevenLabsVoiceID,
		RecentWindow:       cfg.RecentWindow,
		MissingCredentials: missing,
	})

	api := httpapi.New(engine, guardian, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	guardian.StartWatchdog(runCtx, cfg.WatchdogInterval)

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

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
