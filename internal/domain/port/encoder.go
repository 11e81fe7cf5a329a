package port

import "github.com/stepwise/stepwise-processing-service/internal/domain/entity"

type ImageEncoder interface {
	Encode(frame *entity.RawFrame, opts entity.EncodeOptions) (*entity.EncodedFrame, error)
}
