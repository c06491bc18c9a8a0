package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mediaCompressor/api/cache"
	"mediaCompressor/api/config"
	"mediaCompressor/api/database"
	"mediaCompressor/api/handlers"
	"mediaCompressor/api/kafka"
	"mediaCompressor/api/middleware"
	"mediaCompressor/api/repository"
	"mediaCompressor/api/service"
	"mediaCompressor/migrations"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("API service starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	if err := migrations.Up(cfg.DatabaseURL); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisCache)
	jobService := service.NewJobService(repo, statusCache, producer, cfg, logger)
	jobHandler := handlers.NewJobHandler(jobService, logger, cfg.MaxFileSize)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/compress/image", jobHandler.CompressImage)
	mux.HandleFunc("POST /api/compress/video", jobHandler.CompressVideo)
	mux.HandleFunc("POST /api/compress/audio", jobHandler.CompressAudio)
	mux.HandleFunc("GET /api/status/", jobHandler.Status)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("Server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
