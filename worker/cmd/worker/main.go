package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mediaCompressor/pkg/model"
	"mediaCompressor/worker/cache"
	"mediaCompressor/worker/codec"
	"mediaCompressor/worker/compressor"
	"mediaCompressor/worker/config"
	"mediaCompressor/worker/dispatcher"
	"mediaCompressor/worker/kafka"
	"mediaCompressor/worker/orchestrator"
	"mediaCompressor/worker/pool"
	"mediaCompressor/worker/reaper"
	"mediaCompressor/worker/repository"
	"mediaCompressor/worker/storage"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("Worker service starting",
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("workers", cfg.WorkerCount),
	)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			logger.Fatal("Failed to init sentry", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	store, err := storage.NewS3Store(ctx, storage.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		logger.Fatal("Failed to create object store", zap.Error(err))
	}

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisClient)
	ffmpeg := codec.NewFFMPEG(cfg.FFMPEGPath, cfg.FFProbePath, cfg.TempDir)
	comp := compressor.New(ffmpeg, logger)

	orch := orchestrator.New(repo, statusCache, store, comp, logger)

	disp := dispatcher.New(repo, logger)
	disp.Register(model.KindImage, orch)
	disp.Register(model.KindVideo, orch)
	disp.Register(model.KindAudio, orch)

	go reaper.New(db, cfg.StaleAfter, cfg.ReapInterval, logger).Run(ctx)

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	workers := pool.NewWorkerPool(cfg.WorkerCount, logger)
	handler := func(ctx context.Context, msg *kafka.JobMessage) error {
		workers.Submit(ctx, msg, func(ctx context.Context, msg *kafka.JobMessage) error {
			return disp.Dispatch(ctx, msg.JobID)
		})
		return nil
	}

	go func() {
		for {
			// Consume returns on every rebalance; loop until shutdown.
			if err := consumer.Consume(ctx, cfg.KafkaTopic, handler); err != nil {
				logger.Error("Consumer error", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	logger.Info("Worker running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, draining")
	cancel()
	workers.Wait()
	logger.Info("Worker stopped")
}
