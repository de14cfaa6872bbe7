// Package server runs the local API daemon.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/router"
	"github.com/brickbee/go-trade-vault/internal/config"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the local vault and session API",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg := config.DefaultServiceConfigFromEnv()
	configureLogger(cfg)

	s, err := api.InitServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	router.Init(s)

	// Mirror session state changes into the log; the dashboard subscribes the
	// same way through the manager.
	s.Session.Subscribe(func(platform vault.Platform, sess *session.ExecutionSession) {
		if sess == nil {
			log.Info().Str("platform", string(platform)).Msg("Session removed")
			return
		}
		log.Info().
			Str("platform", string(platform)).
			Str("status", string(sess.Status)).
			Time("expires_at", sess.ExpiresAt).
			Msg("Session state changed")
	})

	go func() {
		if err := s.Start(); err != nil {
			log.Error().Err(err).Msg("Server stopped")
		}
	}()

	log.Info().Str("listen_address", cfg.Echo.ListenAddress).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		for _, err := range errs {
			log.Error().Err(err).Msg("Error during shutdown")
		}
		os.Exit(1)
	}
}

func configureLogger(cfg config.Server) {
	level, err := zerolog.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logger.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
