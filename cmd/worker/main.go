package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stepwise/stepwise-processing-service/internal/bootstrap"
	"github.com/stepwise/stepwise-processing-service/internal/infra/archive"
	"github.com/stepwise/stepwise-processing-service/internal/infra/config"
	"github.com/stepwise/stepwise-processing-service/internal/infra/email"
	"github.com/stepwise/stepwise-processing-service/internal/infra/metrics"
	miniostorage "github.com/stepwise/stepwise-processing-service/internal/infra/minio"
	"github.com/stepwise/stepwise-processing-service/internal/infra/postgres"
	"github.com/stepwise/stepwise-processing-service/internal/infra/rabbitmq"
	"github.com/stepwise/stepwise-processing-service/internal/infra/tracing"
	"github.com/stepwise/stepwise-processing-service/internal/infra/webhook"
	"github.com/stepwise/stepwise-processing-service/internal/usecase"
	"github.com/stepwise/stepwise-processing-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting stepwise worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "stepwise-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	// Migrations
	err = postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir)
	if err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:       cfg.MinIOEndpoint,
		AccessKey:      cfg.MinIOAccessKey,
		SecretKey:      cfg.MinIOSecretKey,
		UseSSL:         cfg.MinIOUseSSL,
		Region:         cfg.MinIORegion,
		UploadBucket:   cfg.MinIOUploadBucket,
		KeyframeBucket: cfg.MinIOKeyframeBucket,
		ArchiveBucket:  cfg.MinIOArchiveBucket,
		URLExpiry:      cfg.KeyframeURLExpiry,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	fatalOnErr(os.MkdirAll(cfg.TempDir, 0o755), "create temp dir")

	// Infra adapters
	extractor, err := bootstrap.NewExtractor(cfg, storage, log)
	fatalOnErr(err, "create extractor")
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewProcessVideoUseCase(
		postgres.NewJobRepository(pool),
		postgres.NewGuideRepository(pool),
		extractor,
		archive.NewZipCreator(),
		storage,
		statusPub, dlqPub,
		webhook.NewSender(cfg.CallbackTimeout, log),
		notifier,
		log,
		usecase.ProcessVideoConfig{
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log, pool.Ping, storage.Ping, pub.Ping)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQProcessingQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("stepwise worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("stepwise worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
