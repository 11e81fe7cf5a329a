package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

type GuideRepository interface {
	Save(ctx context.Context, guide *entity.Guide) error
	FindLatest(ctx context.Context, guideID int) (*entity.Guide, error)
}
