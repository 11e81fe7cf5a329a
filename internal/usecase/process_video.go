package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stepwise/stepwise-processing-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RetryableError is returned to the consumer so the message is requeued with
// backoff for the given attempt.
type RetryableError struct {
	attempt     int
	maxAttempts int
	reason      string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable failure (attempt %d/%d): %s", e.attempt, e.maxAttempts, e.reason)
}

func (e *RetryableError) Attempt() int { return e.attempt }

type ProcessVideoUseCase struct {
	repo      port.JobRepository
	guides    port.GuideRepository
	extractor port.GuideExtractor
	archiver  port.Archiver
	archives  port.ArchiveStorage
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	callbacks port.CallbackSender
	notifier  port.FailureNotifier
	logger    *zap.Logger
	maxRetry  int
	now       func() time.Time
}

type ProcessVideoConfig struct {
	MaxRetries int
}

func NewProcessVideoUseCase(
	repo port.JobRepository,
	guides port.GuideRepository,
	extractor port.GuideExtractor,
	archiver port.Archiver,
	archives port.ArchiveStorage,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	callbacks port.CallbackSender,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:      repo,
		guides:    guides,
		extractor: extractor,
		archiver:  archiver,
		archives:  archives,
		publisher: publisher,
		dlq:       dlq,
		callbacks: callbacks,
		notifier:  notifier,
		logger:    logger,
		maxRetry:  cfg.MaxRetries,
		now:       time.Now,
	}
}

func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.GuideRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.VideoRef == "" {
		uc.logger.Error("message has no video reference", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: missing video_ref")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.Int("guide.id", msg.GuideID),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.Int("guide_id", msg.GuideID))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.GuideID, msg.VideoRef, msg.CallbackURL, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processGuidePipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessVideoUseCase) processGuidePipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.GuideRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	guide, err := uc.extractor.Execute(ctx, entity.ExtractionRequest{Reference: msg.VideoRef, GuideID: msg.GuideID})
	if err != nil {
		if errors.Is(err, entity.ErrDownloadFailure) {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, err.Error(), log)
		}
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
	}

	// Bundle keyframes. Fallback guides carry placeholders only.
	var archiveKey string
	if !guide.IsFallback() && len(guide.Keyframes) > 0 {
		upStart := time.Now()
		ctxUp, spanUp := tracer.Start(ctx, "upload_archive")
		key, err := uc.uploadArchive(ctxUp, job, guide)
		spanUp.End()
		if err != nil {
			log.Error("keyframe archive upload failed", zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_archive: "+err.Error(), log)
		}
		archiveKey = key
		metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(upStart).Seconds())
	}

	// One guide row per completed job: persist after the archive.
	if err := uc.guides.Save(ctx, guide); err != nil {
		log.Error("failed to persist guide", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "save_guide: "+err.Error(), log)
	}

	job.MarkCompleted(len(guide.Steps), guide.Source, archiveKey)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)
	uc.sendCallback(ctx, msg.CallbackURL, entity.CallbackPayload{
		GuideID:   guide.GuideID,
		Status:    entity.CallbackStatusCompleted,
		Result:    guide,
		Timestamp: uc.now().UTC(),
	}, log)

	log.Info("job completed successfully",
		zap.Int("step_count", len(guide.Steps)),
		zap.String("source", string(guide.Source)),
		zap.String("archive_key", archiveKey),
	)
	return nil
}

func (uc *ProcessVideoUseCase) uploadArchive(ctx context.Context, job *entity.Job, guide *entity.Guide) (string, error) {
	entries := make([]port.ArchiveEntry, len(guide.Keyframes))
	for i, kf := range guide.Keyframes {
		entries[i] = port.ArchiveEntry{
			Name: fmt.Sprintf("step_%d.%s", i+1, kf.Ext()),
			Data: kf.Data,
		}
	}

	var buf bytes.Buffer
	if err := uc.archiver.CreateArchive(ctx, entries, &buf); err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	key := fmt.Sprintf("%d/guide_%s.zip", guide.GuideID, job.ID.String())
	if err := uc.archives.UploadArchive(ctx, key, &buf, int64(buf.Len())); err != nil {
		return "", err
	}
	return key, nil
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.GuideRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return &RetryableError{attempt: job.Attempt, maxAttempts: job.MaxAttempts, reason: errMsg}
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.GuideRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.GuidesProcessedTotal.WithLabelValues("dlq").Inc()

	uc.sendCallback(ctx, msg.CallbackURL, entity.CallbackPayload{
		GuideID:   msg.GuideID,
		Status:    entity.CallbackStatusFailed,
		Error:     errMsg,
		Timestamp: uc.now().UTC(),
	}, uc.logger)

	if msg.NotifyEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.NotifyEmail, job.ID.String(), msg.GuideID, msg.VideoRef, errMsg)
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.GuideStatusMessage{
		JobID:        job.ID,
		GuideID:      job.GuideID,
		Status:       job.Status,
		VideoRef:     job.VideoRef,
		StepCount:    job.StepCount,
		Source:       job.Source,
		ArchiveKey:   job.ArchiveKey,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// sendCallback never fails the job; delivery errors are logged by the sender.
func (uc *ProcessVideoUseCase) sendCallback(ctx context.Context, url string, payload entity.CallbackPayload, log *zap.Logger) {
	if url == "" {
		return
	}
	if err := uc.callbacks.SendCallback(ctx, url, payload); err != nil {
		log.Warn("callback not delivered", zap.Error(err))
	}
}
