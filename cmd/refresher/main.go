package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/config"
	"github.com/pkozlov/trendrank/internal/ranking"
	"github.com/pkozlov/trendrank/internal/refresh"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
	"github.com/pkozlov/trendrank/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting ranking refresher",
		logger.Duration("interval", cfg.Refresh.Interval),
		logger.Duration("recency_window", cfg.Refresh.RecencyWindow),
		logger.Bool("notifications", cfg.Refresh.EnableNotifications),
	)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize cache backend",
			logger.ErrorField(err),
		)
	}
	defer redisCache.Close()

	itemStore, err := store.NewPostgresItemStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize item store",
			logger.ErrorField(err),
		)
	}
	defer itemStore.Close()

	engine := scoring.NewEngine(scoring.Weights{
		CommentWeight:  cfg.Ranking.CommentWeight,
		ReactionWeight: cfg.Ranking.ReactionWeight,
		GravityHours:   cfg.Ranking.GravityHours,
		DecayExponent:  cfg.Ranking.DecayExponent,
	})

	coordinator := ranking.NewCoordinator(redisCache, itemStore, engine, redisCache)
	scheduler := refresh.NewScheduler(itemStore, coordinator, engine, cfg.Refresh.RecencyWindow)

	// Mutation notifications are optional; without them the runner is a
	// plain interval ticker.
	var notifier cache.Notifier
	if cfg.Refresh.EnableNotifications {
		notifier = redisCache
	}
	runner := refresh.NewRunner(scheduler, cfg.Refresh.Interval, cfg.Refresh.NotifyDebounce, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Shutting down ranking refresher",
			logger.String("signal", sig.String()),
		)
		cancel()
	}()

	runner.Run(ctx)

	logger.Info("Ranking refresher stopped")
}
