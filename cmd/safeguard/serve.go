package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/alert"
	"github.com/xaenox/safeguard/internal/escalation"
	"github.com/xaenox/safeguard/internal/ingest"
	"github.com/xaenox/safeguard/internal/server"
	"github.com/xaenox/safeguard/internal/storage"
	"github.com/xaenox/safeguard/internal/verifier"
	"github.com/xaenox/safeguard/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the moderation HTTP API and escalation workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err), zap.String("path", configPath))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := buildStorage(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	completer, closeCompleter, err := buildCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCompleter()

	dispatcher, err := buildDispatcher(cfg.Alerts, logger)
	if err != nil {
		return err
	}

	coordinator := escalation.NewCoordinator(
		store,
		verifier.New(completer, cfg.Verifier.Timeout, logger),
		dispatcher,
		cfg.Escalation.ReviewBaseURL,
		logger,
	)
	scheduler := escalation.NewScheduler(coordinator, escalation.SchedulerConfig{
		Workers:     cfg.Escalation.Workers,
		QueueSize:   cfg.Escalation.QueueSize,
		MaxOverflow: cfg.Escalation.MaxOverflow,
		TaskTimeout: cfg.Escalation.TaskTimeout,
	}, logger)
	defer func() {
		logger.Info("Draining escalation queue")
		scheduler.Close()
	}()

	gate := ingest.NewGate(store, scheduler, cfg.Ingest.TestRoomPrefix, logger)

	gin.SetMode(cfg.Server.GinMode)
	srv := server.New(store, gate, logger)

	return srv.Run(ctx, cfg.Server.Addr)
}

func buildStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	if cfg.Driver == storage.DriverMemory {
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(logger), nil
	}

	logger.Info("Using SQL storage", zap.String("driver", cfg.Driver))
	store, err := storage.NewSQLStorage(ctx, storage.DatabaseConfig{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
		Path:     cfg.Path,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return nil, err
	}
	return store, nil
}

func buildCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (verifier.Completer, func(), error) {
	switch cfg.Verifier.Provider {
	case "gemini":
		c, err := verifier.NewGeminiCompleter(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxTokens, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	default:
		if cfg.OpenAI.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set, every verification will fail safe")
		}
		c := verifier.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
		return c, func() {}, nil
	}
}

func buildDispatcher(cfg config.AlertsConfig, logger *zap.Logger) (alert.Dispatcher, error) {
	switch cfg.Provider {
	case "telegram":
		d, err := alert.NewTelegramDispatcher(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("Failed to create telegram dispatcher", zap.Error(err))
			return nil, err
		}
		return d, nil
	case "smtp":
		return alert.NewSMTPDispatcher(alert.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger), nil
	default:
		return alert.NewLogDispatcher(logger), nil
	}
}
