package port

import (
	"context"

	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, email string, jobID string, guideID int, videoRef string, errorMsg string) error
}

type CallbackSender interface {
	SendCallback(ctx context.Context, callbackURL string, payload entity.CallbackPayload) error
}
