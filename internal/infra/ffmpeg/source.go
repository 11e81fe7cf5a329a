package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"go.uber.org/zap"
)

// Decoder opens local video files through the ffprobe and ffmpeg binaries.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewDecoder(ffmpegPath, ffprobePath string, logger *zap.Logger) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Decoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

func (d *Decoder) OpenFile(ctx context.Context, videoPath string) (port.FrameSource, error) {
	info, err := d.probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrSourceUnavailable, err)
	}

	d.logger.Info("video opened",
		zap.String("backend", "ffmpeg"),
		zap.Float64("fps", info.FrameRate),
		zap.Int("frames", info.FrameCount),
		zap.Float64("video_duration", info.Duration),
	)

	return &Source{decoder: d, path: videoPath, info: info}, nil
}

type Source struct {
	decoder *Decoder
	path    string
	info    *videoInfo
}

func (s *Source) FrameRate() float64 { return s.info.FrameRate }

func (s *Source) FrameCount() int { return s.info.FrameCount }

// ReadFrame decodes the frame at index as packed RGB24 by seeking to
// index/fps seconds and emitting exactly one frame.
func (s *Source) ReadFrame(ctx context.Context, index int) (*entity.RawFrame, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative frame index %d", entity.ErrDecodeFailure, index)
	}

	offset := 0.0
	if s.info.FrameRate > 0 {
		offset = float64(index) / s.info.FrameRate
	}

	cmd := exec.CommandContext(ctx, s.decoder.ffmpegPath,
		"-v", "error",
		"-ss", strconv.FormatFloat(offset, 'f', 6, 64),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg error: %w, output: %s", entity.ErrDecodeFailure, err, stderr.String())
	}

	want := s.info.Width * s.info.Height * 3
	if stdout.Len() != want {
		return nil, fmt.Errorf("%w: frame %d: got %d bytes, want %d", entity.ErrDecodeFailure, index, stdout.Len(), want)
	}

	return &entity.RawFrame{
		Width:  s.info.Width,
		Height: s.info.Height,
		Order:  entity.ChannelOrderRGB,
		Pix:    stdout.Bytes(),
	}, nil
}

func (s *Source) Close() error {
	return nil
}
