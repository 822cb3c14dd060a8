package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/blockedby/tgstats/internal/api"
	"github.com/blockedby/tgstats/internal/config"
	"github.com/blockedby/tgstats/internal/database"
	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/migrator"
	"github.com/blockedby/tgstats/internal/nats"
	"github.com/blockedby/tgstats/internal/publisher"
	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/scraper"
	"github.com/blockedby/tgstats/internal/sessionstore"
	"github.com/blockedby/tgstats/internal/telegram"
	"github.com/blockedby/tgstats/migrations"
)

func main() {
	// .env is optional, real deployments use the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting telegram stats scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// database + schema
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migrator.NewWithFS(migrations.FS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// session continuity through object storage
	store := sessionstore.New(cfg)
	if store.Initialize(ctx) {
		log.Info().Msg("session storage available")
	} else {
		log.Warn().Msg("session storage unavailable, sessions are local only")
	}

	// telegram client, connected lazily on first scrape would lose the
	// fail-fast signal, so connect up front when credentials exist
	tgManager := telegram.NewManager(cfg, store)
	if cfg.HasTelegramCredentials() {
		if err := tgManager.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("telegram connect failed, scrapes will be rejected")
		}
	} else {
		log.Warn().Msg("TG_API_ID and TG_API_HASH not set, scrapes will be rejected")
	}
	tgClient := telegram.NewClient(tgManager)
	defer tgClient.Close()

	// NATS is optional, scrapes work without event publishing
	var pub scraper.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx, publisher.StreamScrapes, publisher.StreamSubjects()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure scrapes stream, publishing disabled")
			} else {
				pub = publisher.NewNATSPublisher(nc)
			}
		}
	}

	svc := scraper.NewService(tgClient, repository.NewStore(db.Pool), tgManager, pub)

	server := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       "Telegram Stats Scraper",
		Description: "Scrapes Telegram channel statistics into PostgreSQL",
		Version:     "1.0.0",
	}, &api.Dependencies{
		Scraper: svc,
		Session: store,
	})

	log.Info().Int("port", cfg.HTTPPort).Msg("starting api server")
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	tgManager.Stop()

	log.Info().Msg("shutdown complete")
}
