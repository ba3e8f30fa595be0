package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/sentiment-bot/internal/api"
	"github.com/xaenox/sentiment-bot/internal/auth"
	"github.com/xaenox/sentiment-bot/internal/bot"
	"github.com/xaenox/sentiment-bot/internal/dashboard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var withBot bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API for predictions, chat sessions and the audit dashboard.
With --with-bot the Telegram bot runs in the same process and shares chat state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}

		a := mustApp(ctx, cfg, logger)
		defer shutdown(a, cfg, logger)

		router := api.NewRouter(api.Deps{
			Predictor: a.predictor,
			Chat:      a.chat,
			Dashboard: dashboard.NewReader(a.store, dashboard.Config{
				TTL:          cfg.Dashboard.CacheTTL,
				Limit:        cfg.Dashboard.Limit,
				FetchTimeout: cfg.Dashboard.FetchTimeout,
			}, logger),
			Verifier: verifier,
			Audit:    a.audit,
			Logger:   logger,
		})

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		var b *bot.Bot
		if withBot {
			if b, err = bot.New(cfg.Telegram.Token, a.chat, logger); err != nil {
				return err
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return runServer(gctx, srv, cfg.Server.ShutdownTimeout, logger)
		})
		if b != nil {
			g.Go(func() error { return b.Start(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withBot, "with-bot", false, "also run the Telegram bot")
}

func runServer(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown error", zap.Error(err))
		}
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
