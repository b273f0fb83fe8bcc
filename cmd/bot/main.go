package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/archive-bot-go/internal/archive"
	"github.com/user/archive-bot-go/internal/bot"
	"github.com/user/archive-bot-go/internal/config"
	"github.com/user/archive-bot-go/internal/scheduler"
	"github.com/user/archive-bot-go/internal/server"
	"github.com/user/archive-bot-go/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	// Initialize structured JSON logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create root context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL store; without it no progress is possible
	mysqlStore, err := store.NewMySQLStore(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	// Initialize path resolver, creating the archive root if needed
	resolver, err := archive.NewResolver(cfg.Archive.TargetDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize archive root")
	}
	log.Info().Str("root", resolver.Root()).Msg("Archive root ready")

	// Initialize Telegram client
	telegramClient, err := bot.NewClient(cfg.Bot.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	log.Info().Msg("Telegram client initialized")

	// Initialize archive pipeline
	pipeline := archive.NewPipeline(mysqlStore, telegramClient, resolver, telegramClient.SelfID(), cfg.Archive.ReplyRateLimit)
	log.Info().Msg("Archive pipeline initialized")

	// Initialize bot handler
	botHandler := bot.NewHandler(pipeline, telegramClient)
	log.Info().Msg("Bot handler initialized")

	// Initialize stats scheduler
	sched := scheduler.NewScheduler(mysqlStore, cfg.Archive.StatsInterval)

	// Initialize HTTP server
	httpServer := server.NewServer(mysqlStore)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	go func() {
		if err := httpServer.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Start stats scheduler
	sched.Start(ctx)
	log.Info().Msg("Stats scheduler started")

	// Start Telegram bot polling in goroutine. Each update gets its own
	// goroutine so a slow download in one chat never delays another; the
	// pipeline's per-chat lock keeps updates for the same chat in order
	// of arrival at the lock.
	var handlers sync.WaitGroup
	go func() {
		log.Info().Msg("Starting Telegram bot polling")
		updates := telegramClient.GetUpdates()
		for update := range updates {
			handlers.Add(1)
			go func(update tgbotapi.Update) {
				defer handlers.Done()
				botHandler.HandleUpdate(ctx, update)
			}(update)
		}
	}()

	log.Info().Msg("Archive bot started successfully")

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. Stop Telegram bot polling so no new messages arrive, then wait
	// for in-flight handlers to finish or the shutdown deadline to pass
	telegramClient.StopReceivingUpdates()
	handlersDone := make(chan struct{})
	go func() {
		handlers.Wait()
		close(handlersDone)
	}()
	select {
	case <-handlersDone:
		log.Info().Msg("Telegram bot polling stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Timed out waiting for in-flight updates")
	}

	// 2. Stop stats scheduler
	sched.Stop()
	log.Info().Msg("Stats scheduler stopped")

	// 3. Stop HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// 4. Close database connection pool
	if err := mysqlStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
