package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panjf2000/ants/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stepwise/stepwise-processing-service/internal/bootstrap"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stepwise/stepwise-processing-service/internal/infra/config"
	"github.com/stepwise/stepwise-processing-service/internal/infra/httpapi"
	"github.com/stepwise/stepwise-processing-service/internal/infra/metrics"
	miniostorage "github.com/stepwise/stepwise-processing-service/internal/infra/minio"
	"github.com/stepwise/stepwise-processing-service/internal/infra/postgres"
	"github.com/stepwise/stepwise-processing-service/internal/infra/rabbitmq"
	"github.com/stepwise/stepwise-processing-service/internal/infra/tracing"
	"github.com/stepwise/stepwise-processing-service/internal/infra/webhook"
	"github.com/stepwise/stepwise-processing-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting stepwise api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "stepwise-api")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}
	checks := []metrics.ReadinessCheck{pool.Ping}

	// Object storage and queue are only needed for async requests and minio keyframes.
	var (
		objects  bootstrap.Objects
		uploads  port.VideoStorage
		requests port.RequestPublisher
		signer   port.KeyframeSigner
	)
	if cfg.AsyncEnabled || cfg.KeyframeDelivery == "minio" {
		storage, err := miniostorage.NewStorage(minioConfig(cfg))
		fatalOnErr(err, "create minio storage")
		fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")
		objects, uploads = storage, storage
		if cfg.KeyframeDelivery == "minio" {
			signer = storage
		}
		checks = append(checks, storage.Ping)
	}
	if cfg.AsyncEnabled {
		rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
		fatalOnErr(err, "connect to rabbitmq")
		defer rmqConn.Close()

		pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
		fatalOnErr(err, "create rabbitmq publisher")
		defer pub.Close()
		requests = rabbitmq.NewRequestPublisher(pub)
		checks = append(checks, pub.Ping)
	}

	extractor, err := bootstrap.NewExtractor(cfg, objects, log)
	fatalOnErr(err, "create extractor")

	workerPool, err := ants.NewPool(cfg.APIPoolSize, ants.WithPanicHandler(func(p interface{}) {
		log.Error("panic in worker pool", zap.Any("panic", p))
	}))
	fatalOnErr(err, "create worker pool")
	defer workerPool.Release()

	handler := httpapi.NewHandler(
		extractor,
		postgres.NewGuideRepository(pool),
		webhook.NewSender(cfg.CallbackTimeout, log),
		uploads,
		requests,
		signer,
		workerPool,
		log,
		httpapi.HandlerConfig{
			UploadDir:         cfg.UploadDir,
			MaxUploadBytes:    cfg.MaxUploadBytes,
			AllowedExtensions: cfg.AllowedExtensions,
			Debug:             cfg.Debug,
		},
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := httpapi.NewRouter(handler, cfg.APIKey, log)
	fatalOnErr(err, "create router")

	fatalOnErr(os.MkdirAll(cfg.UploadDir, 0o755), "create upload dir")
	fatalOnErr(os.MkdirAll(cfg.TempDir, 0o755), "create temp dir")

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log, checks...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api stopped with error", zap.Error(err))
	}
	log.Info("stepwise api stopped")
}

func minioConfig(cfg *config.Config) miniostorage.StorageConfig {
	return miniostorage.StorageConfig{
		Endpoint:       cfg.MinIOEndpoint,
		AccessKey:      cfg.MinIOAccessKey,
		SecretKey:      cfg.MinIOSecretKey,
		UseSSL:         cfg.MinIOUseSSL,
		Region:         cfg.MinIORegion,
		UploadBucket:   cfg.MinIOUploadBucket,
		KeyframeBucket: cfg.MinIOKeyframeBucket,
		ArchiveBucket:  cfg.MinIOArchiveBucket,
		URLExpiry:      cfg.KeyframeURLExpiry,
	}
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
