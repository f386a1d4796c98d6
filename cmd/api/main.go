package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkozlov/trendrank/internal/api"
	"github.com/pkozlov/trendrank/internal/cache"
	"github.com/pkozlov/trendrank/internal/config"
	"github.com/pkozlov/trendrank/internal/ranking"
	"github.com/pkozlov/trendrank/internal/refresh"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/internal/store"
	"github.com/pkozlov/trendrank/pkg/logger"
)

func main() {
	// Load configuration; invalid weights or TTLs abort before serving
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting trending ranking API",
		logger.Int("port", cfg.API.Port),
		logger.Int("default_limit", cfg.Ranking.DefaultLimit),
	)

	// Cache backend lifecycle is owned here, not by a lazy singleton
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

	rankingService := ranking.NewService(
		itemStore,
		redisCache,
		engine,
		cfg.Cache.MediumTTL,
		cfg.Cache.ShortTTL,
		cfg.Ranking.DefaultLimit,
		cfg.Ranking.MaxLimit,
	)
	coordinator := ranking.NewCoordinator(redisCache, itemStore, engine, redisCache)
	scheduler := refresh.NewScheduler(itemStore, coordinator, engine, cfg.Refresh.RecencyWindow)

	handler := api.NewRankingHandler(rankingService, coordinator, scheduler, cfg.Ranking.DefaultLimit, cfg.Ranking.MaxLimit)

	// Set up router
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/rankings", handler.GetRankings).Methods("GET")
	v1.HandleFunc("/items/{id}", handler.GetItem).Methods("GET")
	v1.HandleFunc("/items/{id}/mutations", handler.PostMutation).Methods("POST")
	v1.HandleFunc("/refresh", handler.PostRefresh).Methods("POST")

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := itemStore.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	middlewares := api.ChainMiddleware(
		api.CORSMiddleware(),
		api.LoggingMiddleware(),
		api.RecoveryMiddleware(),
	)

	// Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      middlewares(router),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down trending ranking API")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Trending ranking API stopped")
}
