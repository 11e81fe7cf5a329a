package gocv

import (
	"context"
	"fmt"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
	"github.com/stepwise/stepwise-processing-service/internal/domain/port"
	"go.uber.org/zap"
	cv "gocv.io/x/gocv"
)

// Decoder opens local video files with OpenCV.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) OpenFile(_ context.Context, path string) (port.FrameSource, error) {
	capture, err := cv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", entity.ErrSourceUnavailable, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: could not open video file %s", entity.ErrSourceUnavailable, path)
	}

	frameCount := int(capture.Get(cv.VideoCaptureFrameCount))
	if frameCount < 0 {
		frameCount = 0
	}
	src := &Source{
		capture:    capture,
		frameRate:  capture.Get(cv.VideoCaptureFPS),
		frameCount: frameCount,
	}

	d.logger.Info("video opened",
		zap.String("backend", "gocv"),
		zap.Float64("fps", src.frameRate),
		zap.Int("frames", src.frameCount),
	)
	return src, nil
}

type Source struct {
	capture    *cv.VideoCapture
	frameRate  float64
	frameCount int
}

func (s *Source) FrameRate() float64 { return s.frameRate }

func (s *Source) FrameCount() int { return s.frameCount }

// ReadFrame seeks with CAP_PROP_POS_FRAMES and reads one BGR frame.
func (s *Source) ReadFrame(_ context.Context, index int) (*entity.RawFrame, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative frame index %d", entity.ErrDecodeFailure, index)
	}

	s.capture.Set(cv.VideoCapturePosFrames, float64(index))

	mat := cv.NewMat()
	defer mat.Close()

	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("%w: unable to read frame %d", entity.ErrDecodeFailure, index)
	}
	if mat.Type() != cv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: frame %d has unsupported mat type %v", entity.ErrDecodeFailure, index, mat.Type())
	}

	return &entity.RawFrame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Order:  entity.ChannelOrderBGR,
		Pix:    mat.ToBytes(),
	}, nil
}

func (s *Source) Close() error {
	return s.capture.Close()
}
