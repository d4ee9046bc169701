package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/netzah/ledger-engine/internal/config"
	"github.com/netzah/ledger-engine/internal/repository"
	"github.com/netzah/ledger-engine/internal/service"
	"github.com/netzah/ledger-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	logger.Info().Msg("starting ledger scheduler")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.IsDevelopment(),
	})

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	borrowingRepo := repository.NewBorrowingRepository(db)
	libraryService := service.NewLibraryService(borrowingRepo, redisClient, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Scheduler.Timezone).Msg("invalid scheduler timezone")
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep marking borrowed loans past their due date as overdue
	_, err = c.AddFunc(cfg.Scheduler.OverdueSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		marked, err := libraryService.SweepOverdue(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("overdue sweep failed")
			return
		}
		logger.Info().Int64("marked", marked).Msg("overdue sweep done")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule overdue sweep")
	}

	c.Start()
	logger.Info().Str("spec", cfg.Scheduler.OverdueSweepSpec).Msg("scheduler started")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down scheduler")
	c.Stop()
	logger.Info().Msg("scheduler stopped")
}
