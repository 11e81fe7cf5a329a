package bootstrap

import (
	"fmt"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"github.com/stepwise/stepwise-processing-service/internal/infra/config"
	"github.com/stepwise/stepwise-processing-service/internal/infra/encoder"
	"github.com/stepwise/stepwise-processing-service/internal/infra/ffmpeg"
	"github.com/stepwise/stepwise-processing-service/internal/infra/gocv"
	"github.com/stepwise/stepwise-processing-service/internal/infra/keyframe"
	"github.com/stepwise/stepwise-processing-service/internal/infra/source"
	"github.com/stepwise/stepwise-processing-service/internal/usecase"
	"go.uber.org/zap"
)

// Objects is the object-store surface the extraction pipeline can use.
type Objects interface {
	port.VideoStorage
	port.KeyframeStore
}

// NewExtractor wires the frame backend, encoder and keyframe delivery chosen
// by cfg. objects may be nil when no object store is configured.
func NewExtractor(cfg *config.Config, objects Objects, log *zap.Logger) (*usecase.ExtractStepsUseCase, error) {
	var decoder source.Decoder
	switch cfg.FrameBackend {
	case "gocv":
		decoder = gocv.NewDecoder(log)
	case "ffmpeg":
		decoder = ffmpeg.NewDecoder(cfg.FFmpegPath, cfg.FFprobePath, log)
	default:
		return nil, fmt.Errorf("unsupported frame backend %q", cfg.FrameBackend)
	}

	var videos port.VideoStorage
	if objects != nil {
		videos = objects
	}

	var keyframes port.KeyframeStore = keyframe.NewInlineStore()
	if cfg.KeyframeDelivery == "minio" {
		if objects == nil {
			return nil, fmt.Errorf("keyframe delivery %q needs object storage", cfg.KeyframeDelivery)
		}
		keyframes = objects
	}

	downloader := source.NewHTTPDownloader(cfg.DownloadTimeout, cfg.DownloadChunkSize, log)
	opener := source.NewOpener(decoder, downloader, videos, cfg.TempDir, log)

	return usecase.NewExtractStepsUseCase(opener, encoder.NewEncoder(), keyframes, log, usecase.ExtractStepsConfig{
		Encode: encodeOptions(cfg),
	}), nil
}

// encodeOptions overlays the configured image settings on the encoder defaults.
func encodeOptions(cfg *config.Config) entity.EncodeOptions {
	opts := entity.DefaultEncodeOptions()
	if cfg.ImageMaxWidth > 0 {
		opts.MaxWidth = cfg.ImageMaxWidth
	}
	if cfg.ImageQuality > 0 {
		opts.Quality = cfg.ImageQuality
	}
	if cfg.ImageFormat != "" {
		opts.Format = entity.ImageFormat(cfg.ImageFormat)
	}
	return opts
}
