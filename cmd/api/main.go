package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kociii/reData/internal/api"
	"github.com/kociii/reData/internal/config"
	"github.com/kociii/reData/internal/control"
	"github.com/kociii/reData/internal/db"
	"github.com/kociii/reData/internal/events"
	"github.com/kociii/reData/internal/excel"
	"github.com/kociii/reData/internal/logger"
	"github.com/kociii/reData/internal/processing"
	"github.com/kociii/reData/internal/progress"
	"github.com/kociii/reData/internal/storage"

	aiclient "github.com/kociii/reData/internal/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get().With().Str("app", cfg.App.Name).Logger()

	conn, err := db.NewConnection(cfg.DatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	repo := db.NewRepository(conn)
	ledger := progress.NewLedger(repo)
	registry := control.NewRegistry()
	broker := events.NewBroker()

	notifier := events.Multi{broker}
	if cfg.Redis.Host != "" {
		redisClient, err := events.NewRedisClient(context.Background(), cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		notifier = append(notifier, events.NewRedisNotifier(redisClient, cfg.Redis.ProgressChannel, log))
		log.Info().Str("channel", cfg.Redis.ProgressChannel).Msg("redis event publishing enabled")
	}

	source := &storage.Router{Local: storage.NewLocalSource()}
	if cfg.Storage.S3.Bucket != "" {
		s3Source, err := storage.NewS3Source(storage.S3Config{
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			Bucket:    cfg.Storage.S3.Bucket,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure s3 storage")
		}
		source.S3 = s3Source
		log.Info().Str("bucket", cfg.Storage.S3.Bucket).Msg("s3 storage enabled")
	}

	orch := processing.NewOrchestrator(
		repo,
		ledger,
		registry,
		notifier,
		aiclient.NewClient(cfg.AI.RequestTimeout, log),
		excel.NewDecoder(),
		source,
		processing.Config{
			SampleRows:       cfg.AI.SampleRows,
			SampleValues:     cfg.AI.SampleValues,
			PausePoll:        cfg.Processing.PausePollInterval,
			BlankRowLimit:    cfg.Processing.BlankRowLimit,
			ProgressInterval: cfg.Processing.ProgressInterval,
		},
		log,
	)

	handler := api.NewHandler(orch, repo, broker, log)
	router := api.NewRouter(handler, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
