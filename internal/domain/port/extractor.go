package port

import (
	"context"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

// GuideExtractor turns one video reference into a guide.
type GuideExtractor interface {
	Execute(ctx context.Context, req entity.ExtractionRequest) (*entity.Guide, error)
}
