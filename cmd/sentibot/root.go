package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xaenox/sentiment-bot/internal/audit"
	"github.com/xaenox/sentiment-bot/internal/chat"
	"github.com/xaenox/sentiment-bot/internal/classifier"
	"github.com/xaenox/sentiment-bot/internal/prediction"
	"github.com/xaenox/sentiment-bot/internal/session"
	"github.com/xaenox/sentiment-bot/internal/storage"
	"github.com/xaenox/sentiment-bot/pkg/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sentibot",
	Short: "Urdu sentiment analysis over Telegram and HTTP",
	Long: `sentibot classifies short Urdu texts as Positive or Negative using a
frozen TF-IDF + logistic regression model, keeps per-user chat histories and
records every prediction in an audit trail.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file (optional)")
	rootCmd.AddCommand(serveCmd, botCmd, predictCmd, tokenCmd)
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

// app holds the components shared by every long-running command.
type app struct {
	store     storage.AuditStore
	audit     *audit.Logger
	predictor *prediction.Service
	chat      *chat.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	model, err := classifier.NewArtifactLoader(cfg.Model.Dir, logger).Load()
	if err != nil {
		return nil, err
	}

	// Initialize storage
	var store storage.AuditStore
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory audit storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL audit storage")
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
	}

	auditLogger := audit.NewLogger(store, audit.Config{
		QueueSize:    cfg.Audit.QueueSize,
		Workers:      cfg.Audit.Workers,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, logger)

	predictor := prediction.NewService(model, auditLogger, logger)
	return &app{
		store:     store,
		audit:     auditLogger,
		predictor: predictor,
		chat:      chat.NewService(session.NewDirectory(), predictor, logger),
	}, nil
}

// Close drains pending audit records before closing storage.
func (a *app) Close(ctx context.Context) error {
	return multierr.Combine(
		a.audit.Close(ctx),
		a.store.Close(),
	)
}

// mustApp builds the app or exits: missing model artifacts are fatal.
func mustApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) *app {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start", zap.Error(err), zap.String("model_dir", cfg.Model.Dir))
	}
	return a
}

func shutdown(a *app, cfg *config.Config, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Close(ctx); err != nil {
		logger.Warn("Shutdown finished with errors", zap.Error(err))
	}
	stats := a.audit.Stats()
	logger.Info("Audit delivery summary",
		zap.Uint64("submitted", stats.Submitted),
		zap.Uint64("written", stats.Written),
		zap.Uint64("dropped", stats.Dropped),
		zap.Uint64("failed", stats.Failed))
}
