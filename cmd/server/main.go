package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chatbot/internal/auth"
	"chatbot/internal/config"
	"chatbot/internal/conversation"
	"chatbot/internal/history"
	"chatbot/internal/llm"
	"chatbot/internal/prompt"
	"chatbot/internal/scheduler"
	"chatbot/internal/storage"
	"chatbot/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	permanent, err := prompt.ParsePermanentContext(cfg.PermanentContextJSON)
	if err != nil {
		sugar.Warnw("invalid PERMANENT_CONTEXT, starting with empty context", "error", err)
		permanent = prompt.NewPermanentContext()
	}
	if _, ok := permanent.Snapshot()["bot_personality"]; !ok {
		permanent.Add("bot_personality", "Professional and friendly AI assistant")
	}

	usersRepo, err := auth.NewFileRepository(cfg.UsersFilePath)
	if err != nil {
		sugar.Fatalw("failed to init users repository", "error", err)
	}
	users, err := auth.NewWithRepo(usersRepo)
	if err != nil {
		sugar.Fatalw("failed to init auth service", "error", err)
	}
	bootstrapAdmin(cfg, users, sugar)

	store, err := newHistoryStore(cfg)
	if err != nil {
		sugar.Fatalw("failed to init history store", "error", err)
	}

	var recorder storage.Recorder
	if cfg.UsageLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.UsageLogPath)
		if err != nil {
			sugar.Warnw("failed to init usage recorder, auditing disabled", "error", err)
		} else {
			recorder = fr
		}
	}

	factory := llm.NewFactory(cfg)
	textClient, err := factory.TextClient()
	if err != nil {
		sugar.Fatalw("failed to create text client", "error", err)
	}
	imageClient, err := factory.ImageClient()
	if err != nil {
		sugar.Fatalw("failed to create image client", "error", err)
	}

	orch := conversation.New(store, permanent, textClient, imageClient, recorder, cfg.RecentWindow, sugar)
	sessions := web.NewSessionManager(cfg.SessionTTL)
	server := web.NewServer(cfg.ListenAddr, users, sessions, store, orch, textClient, recorder, sugar)

	maint := scheduler.New(sessions, recorder, sugar)
	if err := maint.Start(); err != nil {
		sugar.Fatalw("failed to start maintenance scheduler", "error", err)
	}

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	sugar.Infof("shutting down")
	maint.Stop()
	if err := server.Stop(); err != nil {
		sugar.Warnw("graceful shutdown failed", "error", err)
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func newHistoryStore(cfg *config.Config) (history.Store, error) {
	switch cfg.HistoryBackend {
	case config.BackendMemory:
		return history.NewMemoryStore(cfg.MaxHistory), nil
	case config.BackendFile:
		return history.NewFileStore(cfg.HistoryFilePath, cfg.MaxHistory)
	case config.BackendSQLite:
		return history.NewSQLiteStore(cfg.HistoryDBPath, cfg.MaxHistory)
	default:
		return nil, errors.New("unknown history backend: " + string(cfg.HistoryBackend))
	}
}

func bootstrapAdmin(cfg *config.Config, users *auth.Service, sugar *zap.SugaredLogger) {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	admin, err := users.CreateAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return
		}
		sugar.Warnw("failed to bootstrap admin account", "error", err)
		return
	}
	sugar.Infow("bootstrap admin created", "user_id", admin.ID, "username", admin.Username)
}
