// Package main runs the background worker that processes notification
// batches (create records, transcode uploads, mark completions).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/upstandfm/audio-transcoder/config"
	"github.com/upstandfm/audio-transcoder/internal/pipeline"
	"github.com/upstandfm/audio-transcoder/internal/recordings"
	"github.com/upstandfm/audio-transcoder/internal/transcoder"
	"github.com/upstandfm/audio-transcoder/internal/worker"
	"github.com/upstandfm/audio-transcoder/pkg/database"
	"github.com/upstandfm/audio-transcoder/pkg/queue"
	"github.com/upstandfm/audio-transcoder/pkg/redis"
	"github.com/upstandfm/audio-transcoder/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	recordingRepo := recordings.NewRepository(pool)
	ffmpeg := transcoder.NewFFmpeg(cfg.Transcoder.FFmpegPath, cfg.Transcoder.WorkDir, logger)

	pipelineCfg := pipeline.DefaultConfig(cfg.AWS.RecordingsBucket, cfg.AWS.TranscodedBucket)
	pipelineCfg.StrictComplete = cfg.Pipeline.StrictComplete
	consumers := pipeline.NewConsumers(s3Client, recordingRepo, ffmpeg, pipelineCfg, nil, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewNotificationProcessor(consumers, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
