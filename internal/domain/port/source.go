package port

import (
	"context"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

// FrameSource is an open, seekable video. It is not safe for concurrent use.
type FrameSource interface {
	FrameRate() float64
	FrameCount() int
	// ReadFrame seeks to the 0-based frame index and decodes that frame.
	ReadFrame(ctx context.Context, index int) (*entity.RawFrame, error)
	Close() error
}

type FrameSourceOpener interface {
	Open(ctx context.Context, reference string) (FrameSource, error)
}
