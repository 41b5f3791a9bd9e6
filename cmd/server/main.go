package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"ai-interviewer/internal/config"
	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/interviewer"
	"ai-interviewer/internal/llm"
	"ai-interviewer/internal/notify"
	"ai-interviewer/internal/proctor"
	"ai-interviewer/internal/protocol"
	"ai-interviewer/internal/scheduler"
	"ai-interviewer/internal/server"
	"ai-interviewer/internal/session"
	"ai-interviewer/internal/storage"
	"ai-interviewer/internal/store"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	// Question-and-scoring collaborator: remote deployment or the
	// in-process LLM-backed engine.
	var (
		client protocol.Client
		engine *interviewer.Engine
	)
	if cfg.InterviewServiceURL != "" {
		client = protocol.NewHTTPClient(cfg.InterviewServiceURL)
		log.Printf("Using remote interview service at %s", cfg.InterviewServiceURL)
	} else {
		factory := llm.NewFactory(cfg)
		llmClient, err := factory.CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
		if err != nil {
			log.Fatalf("failed to create llm client: %v", err)
		}
		engine = interviewer.New(llmClient, cfg.TotalQuestions)
		client = engine
	}

	var st store.Store
	if cfg.RedisAddr != "" {
		st = store.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}), 24*time.Hour)
		log.Printf("Using redis session store at %s", cfg.RedisAddr)
	} else {
		st = store.NewMemoryStore()
	}

	var rec storage.Recorder
	if cfg.ResultLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.ResultLogPath)
		if err != nil {
			log.Printf("failed to init result recorder: %v", err)
		} else {
			rec = fr
		}
	}

	var notifier notify.Notifier
	if cfg.TelegramBotToken != "" && cfg.AlertChatID != 0 {
		tn, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.AlertChatID)
		if err != nil {
			log.Printf("failed to init telegram notifier: %v", err)
		} else {
			notifier = tn
		}
	}

	sink := &resultSink{
		store:    st,
		recorder: rec,
		notifier: notifier,
	}
	if engine != nil {
		sink.release = engine.Release
	}

	var srv *server.Server

	manager := session.NewManager(session.ManagerConfig{
		Client:                client,
		Sink:                  sink,
		AnswerHandoffDelay:    cfg.AnswerHandoffDelay,
		SkipHandoffDelay:      cfg.SkipHandoffDelay,
		TerminateHandoffDelay: cfg.TerminateHandoffDelay,
		OnUpdate: func(c *session.Controller) {
			persistStatus(st, c)
			if srv != nil {
				srv.PushUpdate(c)
			}
		},
		OnRelease: func(sessionID string) {
			if engine != nil {
				engine.Release(sessionID)
			}
		},
	})

	progress := func(sessionID string) (int, bool) {
		if engine == nil {
			return 0, false
		}
		return engine.QuestionCount(sessionID)
	}

	srv = server.New(server.Config{
		Addr:               cfg.HTTPAddr,
		MaxResumeBytes:     cfg.MaxResumeBytes,
		SampleInterval:     cfg.SampleInterval,
		ViolationThreshold: cfg.ViolationThreshold,
		DeviceTimeout:      cfg.DeviceTimeout,
		Progress:           progress,
	}, manager, st, proctor.NewHTTPDetector(cfg.FaceServiceURL))

	janitor := scheduler.NewJanitor(cfg.JanitorSpec, func() {
		manager.Sweep(cfg.SessionTTL, cfg.SessionTTL)
	})
	if err := janitor.Start(); err != nil {
		log.Fatalf("failed to start janitor: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		janitor.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	if err := srv.Start(); err != nil {
		log.Printf("server stopped: %v", err)
	}
}

// resultSink fans one delivered handoff out to the record store, the
// JSONL log, the alert channel and collaborator-side cleanup.
type resultSink struct {
	store    store.Store
	recorder storage.Recorder
	notifier notify.Notifier
	release  func(sessionID string)
}

func (s *resultSink) Deliver(payload interview.HandoffPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.SaveResult(ctx, payload.SessionID, payload); err != nil {
		log.Printf("failed to store result for session %s: %v", payload.SessionID, err)
	}
	if s.recorder != nil {
		if err := s.recorder.AppendResult(storage.ResultEvent{Timestamp: time.Now(), Payload: payload}); err != nil {
			log.Printf("failed to record result for session %s: %v", payload.SessionID, err)
		}
	}
	if s.notifier != nil && payload.Terminated {
		s.notifier.SessionTerminated(payload)
	}
	if s.release != nil {
		s.release(payload.SessionID)
	}
	log.Printf("📄 Delivered results for session %s (terminated=%v, %d transcript entries)",
		payload.SessionID, payload.Terminated, len(payload.Transcript))
}

func persistStatus(st store.Store, c *session.Controller) {
	snap := c.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := st.SaveStatus(ctx, store.Record{
		SessionID:     snap.SessionID,
		Company:       snap.Params.Company,
		Role:          snap.Params.Role,
		Type:          snap.Params.Type,
		State:         string(snap.State),
		QuestionLabel: snap.QuestionLabel,
	})
	if err != nil {
		log.Printf("failed to persist status for session %s: %v", snap.SessionID, err)
	}
}
