package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/config"
	"github.com/arturoibarra/ovh-fleet/internal/engine"
	enginehttp "github.com/arturoibarra/ovh-fleet/internal/http"
	"github.com/arturoibarra/ovh-fleet/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)
	log.Info().Msg("starting ovh-fleet acquisition engine")

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}

	var sink notify.Sink
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		sink = notify.NewTelegramSink(token, os.Getenv("TELEGRAM_CHAT_ID"))
	}

	eng, err := engine.New(cfg, log, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	handler := &enginehttp.Handler{
		Queue:         eng.Queue,
		History:       eng.History,
		Subscriptions: eng.Subscriptions,
		Accounts:      eng.Accounts,
		Monitor:       eng.Monitor,
		Hub:           eng.Events,
	}
	router := enginehttp.NewRouter(handler, enginehttp.RouterConfig{
		APISecretKey: cfg.Auth.APISecretKey,
		AuthEnabled:  cfg.Auth.Enabled,
		Log:          log,
		Registry:     eng.Metrics,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()
	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during http server shutdown")
	}

	log.Info().Msg("shutdown complete")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
