package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xaenox/sentiment-bot/internal/bot"
	"go.uber.org/zap"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.Telegram.Token == "" {
			return errors.New("telegram token is not configured (set TELEGRAM_TOKEN)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := mustApp(ctx, cfg, logger)
		defer shutdown(a, cfg, logger)

		// Initialize bot
		b, err := bot.New(cfg.Telegram.Token, a.chat, logger)
		if err != nil {
			logger.Error("Failed to create bot", zap.Error(err))
			return err
		}
		return b.Start(ctx)
	},
}
