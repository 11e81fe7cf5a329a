package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stepwise/stepwise-processing-service/internal/domain/service"
	"github.com/stepwise/stepwise-processing-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ExtractStepsUseCase runs one video through open, plan, sample and assemble.
// A run is sequential; independent runs may execute concurrently.
type ExtractStepsUseCase struct {
	opener     port.FrameSourceOpener
	encoder    port.ImageEncoder
	keyframes  port.KeyframeStore
	logger     *zap.Logger
	encodeOpts entity.EncodeOptions
	now        func() time.Time
}

type ExtractStepsConfig struct {
	Encode entity.EncodeOptions
}

func NewExtractStepsUseCase(
	opener port.FrameSourceOpener,
	encoder port.ImageEncoder,
	keyframes port.KeyframeStore,
	logger *zap.Logger,
	cfg ExtractStepsConfig,
) *ExtractStepsUseCase {
	return &ExtractStepsUseCase{
		opener:     opener,
		encoder:    encoder,
		keyframes:  keyframes,
		logger:     logger,
		encodeOpts: cfg.Encode,
		now:        time.Now,
	}
}

// Execute returns an error only when the video cannot be opened. Any failure
// after that is absorbed by the duration-only mock fallback.
func (uc *ExtractStepsUseCase) Execute(ctx context.Context, req entity.ExtractionRequest) (*entity.Guide, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractStepsUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.Int("guide.id", req.GuideID))

	log := uc.logger.With(zap.Int("guide_id", req.GuideID))

	// Opening
	openStart := time.Now()
	ctxOpen, spanOpen := tracer.Start(ctx, "open_source")
	src, err := uc.opener.Open(ctxOpen, req.Reference)
	spanOpen.End()
	if err != nil {
		span.RecordError(err)
		metrics.GuidesProcessedTotal.WithLabelValues("failed").Inc()
		log.Error("could not open video", zap.Error(err))
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to release video source", zap.Error(err))
		}
	}()
	metrics.StageDuration.WithLabelValues("open").Observe(time.Since(openStart).Seconds())

	// Planning
	frameCount, frameRate := src.FrameCount(), src.FrameRate()
	plan := service.Plan(frameCount, frameRate)
	log.Info("sample plan computed",
		zap.Int("frame_count", frameCount),
		zap.Float64("fps", frameRate),
		zap.Int("num_steps", plan.Len()),
	)

	// Sampling
	sampleStart := time.Now()
	ctxSample, spanSample := tracer.Start(ctx, "sample_frames")
	steps, keyframes, err := uc.sample(ctxSample, src, plan, req.GuideID)
	spanSample.End()

	source := entity.GuideSourceFrames
	if err != nil {
		reason := fallbackReason(err)
		log.Warn("frame sampling failed, falling back to mock steps",
			zap.Error(err),
			zap.String("reason", reason),
		)
		metrics.FallbackTotal.WithLabelValues(reason).Inc()

		steps = service.MockSteps(service.Duration(frameCount, frameRate))
		keyframes = nil
		source = entity.GuideSourceMock
	}
	metrics.StageDuration.WithLabelValues("sample").Observe(time.Since(sampleStart).Seconds())

	// Assembled
	guide := &entity.Guide{
		GuideID:   req.GuideID,
		Steps:     steps,
		Cached:    false,
		Source:    source,
		Timestamp: uc.now().UTC(),
		Keyframes: keyframes,
	}
	span.SetAttributes(
		attribute.String("guide.source", string(source)),
		attribute.Int("guide.steps", len(steps)),
	)
	metrics.GuidesProcessedTotal.WithLabelValues(string(source)).Inc()

	log.Info("guide assembled",
		zap.Int("steps", len(steps)),
		zap.String("source", string(source)),
	)
	return guide, nil
}

func (uc *ExtractStepsUseCase) sample(
	ctx context.Context,
	src port.FrameSource,
	plan entity.SamplePlan,
	guideID int,
) (steps []entity.StepRecord, keyframes []*entity.EncodedFrame, err error) {
	defer func() {
		if r := recover(); r != nil {
			steps, keyframes = nil, nil
			err = fmt.Errorf("panic while sampling: %v", r)
		}
	}()

	total := plan.Len()
	steps = make([]entity.StepRecord, 0, total)
	keyframes = make([]*entity.EncodedFrame, 0, total)

	for _, s := range plan.Samples {
		raw, err := src.ReadFrame(ctx, s.FrameIndex)
		if err != nil {
			return nil, nil, fmt.Errorf("read frame %d: %w", s.FrameIndex, err)
		}

		encoded, err := uc.encoder.Encode(raw, uc.encodeOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("encode frame %d: %w", s.FrameIndex, err)
		}

		order := s.Ordinal + 1
		imageURL, err := uc.keyframes.StoreKeyframe(ctx, guideID, order, encoded)
		if err != nil {
			return nil, nil, fmt.Errorf("store keyframe %d: %w", order, err)
		}

		tpl := service.Synthesize(s.Ordinal, total)
		steps = append(steps, entity.StepRecord{
			Order:       order,
			Title:       tpl.Title,
			Description: tpl.Description,
			ImageURL:    imageURL,
		})
		keyframes = append(keyframes, encoded)
		metrics.FramesSampledTotal.Inc()
	}

	return steps, keyframes, nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, entity.ErrDecodeFailure):
		return "decode"
	case errors.Is(err, entity.ErrEncodeFailure):
		return "encode"
	default:
		return "other"
	}
}
